// Package archivestorage keeps scenes as zip archives in a directory. Each
// save writes <scene>_<date>.zip; loading by name picks the newest archive of
// that scene.
package archivestorage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/sceneeditor/internal/archive"
	"github.com/OCAP2/sceneeditor/internal/config"
	"github.com/OCAP2/sceneeditor/internal/util"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

const dateLayout = "2006-01-02"

// Backend stores scene archives on disk.
type Backend struct {
	cfg   config.ArchiveConfig
	codec *archive.Codec
	log   *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	lastPath string
}

// New creates an archive backend writing to cfg.OutputDir.
func New(cfg config.ArchiveConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:   cfg,
		codec: archive.New(logger),
		log:   logger,
		now:   time.Now,
	}
}

// Init creates the output directory.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return fmt.Errorf("archive output directory not set")
	}
	return os.MkdirAll(b.cfg.OutputDir, 0o755)
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

// Save writes doc to <OutputDir>/<scene>_<date>.zip, replacing a save of the
// same scene made earlier that day.
func (b *Backend) Save(ctx context.Context, doc *core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	filename := filepath.Join(b.cfg.OutputDir, util.ArchiveFileName(doc.Scene.Name, b.now()))
	if err := b.codec.Save(filename, doc); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	b.lastPath = filename
	b.log.Info("scene archive written", "file", filename, "entities", doc.Count())
	return nil
}

// LastPath is the file written by the most recent successful Save.
func (b *Backend) LastPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPath
}

// Load reads a scene. name is either a scene name or the file name of an
// archive in the output directory, or a path to any archive.
func (b *Backend) Load(ctx context.Context, name string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	filename, err := b.resolve(name)
	if err != nil {
		return nil, err
	}
	doc, err := b.codec.Load(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return doc, nil
}

func (b *Backend) resolve(name string) (string, error) {
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		candidates := []string{name}
		if !filepath.IsAbs(name) {
			candidates = append([]string{filepath.Join(b.cfg.OutputDir, name)}, candidates...)
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				return c, nil
			}
		}
		return "", fmt.Errorf("archive %s: %w", name, core.ErrNotFound)
	}

	archives, err := b.archives()
	if err != nil {
		return "", err
	}
	prefix := util.SanitizeName(name) + "_"
	var dated []string
	for _, a := range archives {
		base := filepath.Base(a)
		if !strings.HasPrefix(base, prefix) {
			continue
		}
		// the rest must be exactly a date, or "Op" would match "Op_Thunder_..."
		if _, err := time.Parse(dateLayout, strings.TrimSuffix(strings.TrimPrefix(base, prefix), ".zip")); err != nil {
			continue
		}
		dated = append(dated, a)
	}
	if len(dated) == 0 {
		return "", fmt.Errorf("scene %q: %w", name, core.ErrNotFound)
	}
	slices.Sort(dated)
	return dated[len(dated)-1], nil
}

func (b *Backend) archives() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(b.cfg.OutputDir, "*.zip"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// List decodes every archive in the output directory. Unreadable archives
// are logged and skipped.
func (b *Backend) List(ctx context.Context) ([]core.SceneSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	archives, err := b.archives()
	if err != nil {
		return nil, err
	}

	var out []core.SceneSummary
	for _, a := range archives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := b.codec.Load(a)
		if err != nil {
			b.log.Warn("skipping unreadable archive", "file", a, "error", err)
			continue
		}
		var savedAt time.Time
		if info, err := os.Stat(a); err == nil {
			savedAt = info.ModTime()
		}
		out = append(out, core.SceneSummary{
			Name:           doc.Scene.Name,
			SavedAt:        savedAt,
			StartTimestamp: doc.Scene.StartTimestamp,
			EndTimestamp:   doc.Scene.EndTimestamp,
			Entities:       doc.Count(),
		})
	}
	slices.SortFunc(out, func(x, y core.SceneSummary) int {
		if c := strings.Compare(x.Name, y.Name); c != 0 {
			return c
		}
		return x.SavedAt.Compare(y.SavedAt)
	})
	return out, nil
}
