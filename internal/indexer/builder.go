// Package indexer walks text files and feeds their stems into a shared
// MemoryIndex. Each file is tokenized into a private index first and merged
// with a single AddAll, so concurrent builds only contend on the shared index
// once per file.
package indexer

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/tracing"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/workqueue"
)

// DefaultExtensions are the file suffixes picked up when walking a directory.
var DefaultExtensions = []string{".txt", ".text"}

// BuildStats summarises one Build call.
type BuildStats struct {
	Files    int
	Failed   int
	Stems    int
	Duration time.Duration
}

type Builder struct {
	idx        *index.MemoryIndex
	stemmer    *tokenizer.Stemmer
	queue      *workqueue.WorkQueue
	extensions map[string]struct{}
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type BuilderOption func(*Builder)

// WithWorkQueue makes Build index one file per task on q instead of serially
// on the calling goroutine. The queue is borrowed, never shut down.
func WithWorkQueue(q *workqueue.WorkQueue) BuilderOption {
	return func(b *Builder) {
		b.queue = q
	}
}

// WithExtensions replaces the suffixes matched during a directory walk.
// Matching ignores case and a missing leading dot is added.
func WithExtensions(exts []string) BuilderOption {
	return func(b *Builder) {
		if len(exts) > 0 {
			b.extensions = extensionSet(exts)
		}
	}
}

func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) {
		b.metrics = m
	}
}

func NewBuilder(idx *index.MemoryIndex, stemmer *tokenizer.Stemmer, opts ...BuilderOption) *Builder {
	b := &Builder{
		idx:        idx,
		stemmer:    stemmer,
		extensions: extensionSet(DefaultExtensions),
		logger:     slog.Default().With("component", "builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build indexes path. A regular file is indexed whatever its extension; a
// directory is walked recursively for files with a matching extension.
// Files that cannot be read are logged and counted in BuildStats.Failed
// without stopping the build. Build returns an error only when path itself
// is missing or invalid, or when ctx is cancelled.
func (b *Builder) Build(ctx context.Context, path string) (BuildStats, error) {
	var stats BuildStats
	if path == "" {
		return stats, errors.New(errors.ErrInvalidInput, "build", "", "empty path")
	}
	ctx, span := tracing.StartChildSpan(ctx, "index.build")
	defer span.End()
	log := logger.FromContext(ctx).With("component", "builder")

	start := time.Now()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, errors.New(errors.ErrNotFound, "build", path, "no such file or directory")
		}
		return stats, errors.Newf(errors.ErrUnreadable, "build", path, "%v", err)
	}

	var files []string
	if info.IsDir() {
		files, stats.Failed, err = b.discover(ctx, path, log)
		if err != nil {
			return stats, err
		}
	} else {
		files = []string{path}
	}
	log.Info("starting build", "path", path, "files", len(files), "concurrent", b.queue != nil)

	var indexed, failed, stems atomic.Int64
	process := func(file string) {
		if ctx.Err() != nil {
			return
		}
		n, err := b.buildFile(file)
		if err != nil {
			failed.Add(1)
			b.recordFile("failed", 0)
			log.Warn("skipping unreadable file", "file", file, "error", err)
			return
		}
		indexed.Add(1)
		stems.Add(int64(n))
		b.recordFile("ok", n)
		log.Debug("file indexed", "file", file, "stems", n)
	}

	if b.queue == nil {
		for _, file := range files {
			process(file)
		}
	} else {
		for _, file := range files {
			file := file
			if err := b.queue.Execute(func() { process(file) }); err != nil {
				b.queue.Finish()
				return b.finishStats(stats, &indexed, &failed, &stems, start), err
			}
		}
		if err := b.queue.FinishContext(ctx); err != nil {
			return b.finishStats(stats, &indexed, &failed, &stems, start), err
		}
	}

	stats = b.finishStats(stats, &indexed, &failed, &stems, start)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	span.SetAttr("files", stats.Files)
	span.SetAttr("failed", stats.Failed)
	if b.metrics != nil {
		b.metrics.BuildDuration.Observe(stats.Duration.Seconds())
		b.metrics.IndexStems.Set(float64(b.idx.NumWords()))
		b.metrics.IndexLocations.Set(float64(b.idx.NumLocations()))
	}
	log.Info("build complete",
		"files", stats.Files,
		"failed", stats.Failed,
		"stems", stats.Stems,
		"distinct_stems", b.idx.NumWords(),
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

// BuildFile indexes a single file into the shared index.
func (b *Builder) BuildFile(path string) error {
	_, err := b.buildFile(path)
	return err
}

func (b *Builder) buildFile(path string) (int, error) {
	if path == "" {
		return 0, errors.New(errors.ErrInvalidInput, "build file", "", "empty location")
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.New(errors.ErrNotFound, "build file", path, "no such file")
		}
		return 0, errors.Newf(errors.ErrUnreadable, "build file", path, "%v", err)
	}
	defer f.Close()

	positions := make(map[string][]int)
	last := 0
	reader := bufio.NewReader(f)
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			var tokens []tokenizer.Token
			tokens, last = b.stemmer.Tokenize(line, last)
			for _, tok := range tokens {
				positions[tok.Term] = append(positions[tok.Term], tok.Position)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, errors.Newf(errors.ErrUnreadable, "build file", path, "%v", readErr)
		}
	}
	if last == 0 {
		return 0, nil
	}

	local := index.NewMemoryIndex()
	for stem, list := range positions {
		local.AddPositions(stem, path, list)
	}
	local.AddWordCount(path, last)
	b.idx.AddAll(local)
	return last, nil
}

// discover lists the matching files under root in walk order. Entries the
// walk cannot read are logged and counted as failures.
func (b *Builder) discover(ctx context.Context, root string, log *slog.Logger) ([]string, int, error) {
	var files []string
	failed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			failed++
			b.recordFile("failed", 0)
			log.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if b.matches(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, failed, err
}

func (b *Builder) matches(path string) bool {
	_, ok := b.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (b *Builder) recordFile(status string, stems int) {
	if b.metrics == nil {
		return
	}
	b.metrics.FilesIndexed.WithLabelValues(status).Inc()
	if stems > 0 {
		b.metrics.StemsIndexed.Add(float64(stems))
	}
}

func (b *Builder) finishStats(stats BuildStats, indexed, failed, stems *atomic.Int64, start time.Time) BuildStats {
	stats.Files += int(indexed.Load())
	stats.Failed += int(failed.Load())
	stats.Stems += int(stems.Load())
	stats.Duration = time.Since(start)
	return stats
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}
