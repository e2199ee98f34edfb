package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dskvich/signvideo/pkg/api"
	"github.com/dskvich/signvideo/pkg/converter"
	"github.com/dskvich/signvideo/pkg/database"
	"github.com/dskvich/signvideo/pkg/digitalocean"
	"github.com/dskvich/signvideo/pkg/downloader"
	"github.com/dskvich/signvideo/pkg/google"
	"github.com/dskvich/signvideo/pkg/logger"
	"github.com/dskvich/signvideo/pkg/metrics"
	"github.com/dskvich/signvideo/pkg/openai"
	"github.com/dskvich/signvideo/pkg/publisher"
	"github.com/dskvich/signvideo/pkg/repository"
	"github.com/dskvich/signvideo/pkg/resolver"
	"github.com/dskvich/signvideo/pkg/services"
	"github.com/dskvich/signvideo/pkg/storage"
	"github.com/dskvich/signvideo/pkg/workers"
)

const (
	speechProviderOpenAI = "openai"
	speechProviderGoogle = "google"
)

type Config struct {
	Host       string `env:"HOST" envDefault:"0.0.0.0"`
	Port       int    `env:"PORT" envDefault:"3000"`
	AssetsDir  string `env:"ASSETS_DIR" envDefault:"assets"`
	ScratchDir string `env:"SCRATCH_DIR"`

	SpeechProvider    string `env:"SPEECH_PROVIDER" envDefault:"openai"`
	OpenAIToken       string `env:"OPEN_AI_TOKEN"`
	GoogleCredentials string `env:"GOOGLE_CREDENTIALS"`
	SpeechLanguage    string `env:"SPEECH_LANGUAGE" envDefault:"en-US"`

	VideoCodec string `env:"VIDEO_CODEC" envDefault:"libx264"`
	ClipWidth  int    `env:"CLIP_WIDTH" envDefault:"640"`
	ClipHeight int    `env:"CLIP_HEIGHT" envDefault:"480"`
	ClipFPS    int    `env:"CLIP_FPS" envDefault:"30"`

	DownloadRetryMax int `env:"DOWNLOAD_RETRY_MAX" envDefault:"3"`

	SpacesEndpoint  string `env:"SPACES_ENDPOINT"`
	SpacesRegion    string `env:"SPACES_REGION" envDefault:"us-east-1"`
	SpacesAccessKey string `env:"SPACES_ACCESS_KEY"`
	SpacesSecretKey string `env:"SPACES_SECRET_KEY"`
	SpacesBucket    string `env:"SPACES_BUCKET"`
	SpacesUseSSL    bool   `env:"SPACES_USE_SSL" envDefault:"true"`

	DigitalOceanToken string `env:"DIGITALOCEAN_TOKEN"`
	SpacesCDNID       string `env:"SPACES_CDN_ID"`

	PgURL  string `env:"DATABASE_URL"`
	PgHost string `env:"DB_HOST" envDefault:"localhost:65432"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1h"`
	ReconcileGrace    time.Duration `env:"RECONCILE_GRACE" envDefault:"30m"`

	LogLevel   slog.Level `env:"LOG_LEVEL" envDefault:"DEBUG"`
	LogNoColor bool       `env:"LOG_NO_COLOR"`
}

func (c Config) storageConfigured() bool {
	return c.SpacesEndpoint != "" && c.SpacesBucket != "" && c.SpacesAccessKey != "" && c.SpacesSecretKey != ""
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading .env file", logger.Err(err))
	}

	cfg, err := parseConfig()
	if err != nil {
		return err
	}

	opts := *logger.DefaultOptions
	opts.Level = cfg.LogLevel
	opts.NoColor = cfg.LogNoColor
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &opts)))

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	workerGroup, cleanup, err := setupWorkers(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func parseConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing env config: %w", err)
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "signvideo")
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	// A non-positive grace would let the reconciler remove uploads whose
	// record is still being written.
	if c.ReconcileInterval > 0 && c.ReconcileGrace <= 0 {
		return fmt.Errorf("RECONCILE_GRACE must be positive while the reconciler is enabled, got %s", c.ReconcileGrace)
	}
	return nil
}

func setupWorkers(ctx context.Context, cfg Config) (workers.Group, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("closing resource", logger.Err(err))
			}
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	transcriber, err := newTranscriber(ctx, cfg)
	if err != nil {
		return nil, cleanup, err
	}
	if c, ok := transcriber.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	var (
		objectStorage interface {
			publisher.ObjectStorage
			workers.ObjectLister
		}
		videos interface {
			publisher.RecordRepository
			workers.RecordChecker
		}
	)

	if cfg.storageConfigured() {
		publicBase, err := cdnBaseURL(ctx, cfg)
		if err != nil {
			return nil, cleanup, err
		}

		spaces, err := storage.NewSpaces(storage.SpacesConfig{
			Endpoint:      cfg.SpacesEndpoint,
			Region:        cfg.SpacesRegion,
			AccessKey:     cfg.SpacesAccessKey,
			SecretKey:     cfg.SpacesSecretKey,
			Bucket:        cfg.SpacesBucket,
			UseSSL:        cfg.SpacesUseSSL,
			PublicBaseURL: publicBase,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("creating spaces client: %w", err)
		}
		if err := spaces.EnsureBucket(ctx); err != nil {
			slog.Error("object storage is not reachable, uploads will fail", logger.Err(err))
		}
		objectStorage = spaces
	} else {
		slog.Warn("object storage credentials are not set")
	}

	if cfg.PgURL != "" {
		db, err := database.NewPostgres(cfg.PgURL, cfg.PgHost)
		if err != nil {
			return nil, cleanup, fmt.Errorf("creating db: %w", err)
		}
		closers = append(closers, db.Close)
		videos = repository.NewVideosRepository(db)
	} else {
		slog.Warn("DATABASE_URL is not set")
	}

	signVideoService := services.NewSignVideoService(
		downloader.New(cfg.DownloadRetryMax),
		converter.NewVideoToText(converter.NewAudioExtractor(converter.ExecRunner{}), transcriber),
		resolver.NewFromDir(cfg.AssetsDir),
		converter.NewCompositor(converter.ExecRunner{}, converter.CompositorOptions{
			Codec:  cfg.VideoCodec,
			Width:  cfg.ClipWidth,
			Height: cfg.ClipHeight,
			FPS:    cfg.ClipFPS,
		}),
		publisher.New(objectStorage, videos),
		cfg.ScratchDir,
		m,
	)

	router := api.NewRouter(signVideoService, m, registry)

	workerGroup := workers.Group{workers.NewHTTPServer(cfg.addr(), router)}

	if objectStorage != nil && videos != nil && cfg.ReconcileInterval > 0 {
		workerGroup = append(workerGroup, workers.NewOrphanReconciler(
			objectStorage,
			videos,
			"videos/",
			cfg.ReconcileInterval,
			cfg.ReconcileGrace,
			m,
		))
	}

	return workerGroup, cleanup, nil
}

func newTranscriber(ctx context.Context, cfg Config) (converter.SpeechTranscriber, error) {
	switch cfg.SpeechProvider {
	case speechProviderOpenAI:
		c, err := openai.NewClient(cfg.OpenAIToken, cfg.SpeechLanguage)
		if err != nil {
			return nil, fmt.Errorf("creating open ai client: %w", err)
		}
		return c, nil
	case speechProviderGoogle:
		c, err := google.NewSpeechClient(ctx, cfg.GoogleCredentials, cfg.SpeechLanguage)
		if err != nil {
			return nil, fmt.Errorf("creating google speech client: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown speech provider %q", cfg.SpeechProvider)
}

func cdnBaseURL(ctx context.Context, cfg Config) (string, error) {
	if cfg.SpacesCDNID == "" {
		return "", nil
	}
	if cfg.DigitalOceanToken == "" {
		return "", fmt.Errorf("SPACES_CDN_ID requires DIGITALOCEAN_TOKEN")
	}
	base, err := digitalocean.NewClient(cfg.DigitalOceanToken).CDNBaseURL(ctx, cfg.SpacesCDNID)
	if err != nil {
		return "", fmt.Errorf("resolving spaces cdn: %w", err)
	}
	return base, nil
}
