package resolver

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dskvich/signvideo/pkg/domain"
)

const clipExt = ".mp4"

// Resolver maps transcript words to sign clips stored as <name>.mp4 in a
// single asset directory.
type Resolver struct {
	assets fs.FS
	dir    string
}

// New returns a resolver reading assets from fsys. dir is the on-disk location
// of fsys and is used to build the paths handed to the renderer.
func New(fsys fs.FS, dir string) *Resolver {
	return &Resolver{assets: fsys, dir: dir}
}

// NewFromDir is New(os.DirFS(dir), dir).
func NewFromDir(dir string) *Resolver {
	return New(os.DirFS(dir), dir)
}

// Resolve walks the words in order. A whole-word clip always wins; otherwise
// the word is spelled with whatever letter clips exist. Words with nothing to
// show are dropped and reported in the Resolution, not treated as errors.
func (r *Resolver) Resolve(ctx context.Context, words []string) (*domain.Resolution, error) {
	res := &domain.Resolution{}

	for _, word := range words {
		if asset, ok := r.lookup(strings.ToLower(word)); ok {
			res.Sequence.Units = append(res.Sequence.Units, domain.ClipUnit{
				Word:   word,
				Assets: []domain.ClipAsset{asset},
			})
			continue
		}

		slog.DebugContext(ctx, "No clip for word, spelling it", "word", word)

		var letters []domain.ClipAsset
		for _, ch := range word {
			name := string(unicode.ToLower(ch))
			asset, ok := r.lookup(name)
			if !ok {
				res.MissingLetters = append(res.MissingLetters, name)
				slog.WarnContext(ctx, "No clip for letter", "word", word, "letter", name)
				continue
			}
			letters = append(letters, asset)
		}

		if len(letters) == 0 {
			res.DroppedWords = append(res.DroppedWords, word)
			slog.WarnContext(ctx, "Dropping word without any clip", "word", word)
			continue
		}

		res.Sequence.Units = append(res.Sequence.Units, domain.ClipUnit{
			Word:    word,
			Spelled: true,
			Assets:  letters,
		})
	}

	if res.Sequence.Len() == 0 {
		return res, fmt.Errorf("resolving %d words: %w", len(words), domain.ErrNoResolvableContent)
	}

	return res, nil
}

func (r *Resolver) lookup(name string) (domain.ClipAsset, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return domain.ClipAsset{}, false
	}

	file := name + clipExt
	if !fs.ValidPath(file) {
		return domain.ClipAsset{}, false
	}

	info, err := fs.Stat(r.assets, file)
	if err != nil || !info.Mode().IsRegular() {
		return domain.ClipAsset{}, false
	}

	return domain.ClipAsset{
		Name: name,
		Path: filepath.Join(r.dir, file),
	}, true
}
