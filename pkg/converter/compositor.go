package converter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dskvich/signvideo/pkg/domain"
)

type CompositorOptions struct {
	Codec  string
	Width  int
	Height int
	FPS    int
}

type Compositor struct {
	runner Runner
	opts   CompositorOptions
}

func NewCompositor(runner Runner, opts CompositorOptions) *Compositor {
	if opts.Codec == "" {
		opts.Codec = "libx264"
	}
	return &Compositor{runner: runner, opts: opts}
}

// Concat renders the clip sequence, in order, as one continuous video. Every
// clip is letterboxed to the configured frame so clips of different sizes
// can be joined.
func (c *Compositor) Concat(ctx context.Context, seq domain.ClipSequence, outputPath string) error {
	paths := seq.Paths()
	if len(paths) == 0 {
		return fmt.Errorf("concatenating clips: %w", domain.ErrNoResolvableContent)
	}

	slog.InfoContext(ctx, "Concatenating clips...", "units", seq.Len(), "clips", len(paths), "output", outputPath)

	args := []string{"-y"}
	for _, p := range paths {
		args = append(args, "-i", p)
	}
	args = append(args,
		"-filter_complex", c.concatFilter(len(paths)),
		"-map", "[v]",
		"-an",
		"-c:v", c.opts.Codec,
		"-pix_fmt", "yuv420p",
		outputPath,
	)

	if out, err := c.runner.Run(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("concatenating %d clips: %w: %w: %s", len(paths), domain.ErrRenderFailed, err, tail(out))
	}

	return nil
}

func (c *Compositor) concatFilter(n int) string {
	w, h := strconv.Itoa(c.opts.Width), strconv.Itoa(c.opts.Height)

	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b,
			"[%d:v:0]scale=%s:%s:force_original_aspect_ratio=decrease,pad=%s:%s:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d[c%d];",
			i, w, h, w, h, c.opts.FPS, i)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[c%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=0[v]", n)

	return b.String()
}

// SideBySide puts the original video on the left, resized to the sign video
// height, and the sign video on the right. The original's audio is kept when
// it has any.
func (c *Compositor) SideBySide(ctx context.Context, originalPath, signPath, outputPath string) error {
	slog.InfoContext(ctx, "Composing side by side video...", "original", originalPath, "signs", signPath, "output", outputPath)

	filter := fmt.Sprintf("[0:v:0]scale=-2:%d,setsar=1[left];[1:v:0]setsar=1[right];[left][right]hstack=inputs=2[v]", c.opts.Height)

	out, err := c.runner.Run(ctx, "ffmpeg",
		"-y",
		"-i", originalPath,
		"-i", signPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "0:a?",
		"-c:v", c.opts.Codec,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outputPath,
	)
	if err != nil {
		return fmt.Errorf("composing side by side: %w: %w: %s", domain.ErrRenderFailed, err, tail(out))
	}

	return nil
}
