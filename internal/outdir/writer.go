// Package outdir writes generated artifacts to an output directory.
//
// Every Write is one build. Files whose artifact disappeared since the
// previous build are removed. In hot-reload mode, files whose content hash
// is unchanged and that are still present on disk are left untouched, so
// file watchers in the consuming runtime only see real changes.
//
// The previous build is read from the SQLite build cache when one is
// configured, otherwise from the manifest at the output root.
package outdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/rulegen/internal/codegen"
	"github.com/roach88/rulegen/internal/ir"
	"github.com/roach88/rulegen/internal/store"
)

// Writer writes builds to one output directory.
type Writer struct {
	root   string
	store  *store.Store
	ids    BuildIDGenerator
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithStore records builds in the SQLite build cache.
func WithStore(s *store.Store) Option {
	return func(w *Writer) { w.store = s }
}

// WithBuildIDGenerator overrides the build ID source.
func WithBuildIDGenerator(g BuildIDGenerator) Option {
	return func(w *Writer) { w.ids = g }
}

// WithLogger sets the writer logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// NewWriter creates a writer for root.
func NewWriter(root string, opts ...Option) *Writer {
	w := &Writer{
		root:   root,
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Report summarizes one build.
type Report struct {
	BuildID   string
	Seq       int64
	Written   []string // logical names, emission order
	Unchanged []string
	Removed   []string // logical names, previous build order
}

// previous is the recorded state of the last build.
type previous struct {
	seq       int64
	artifacts map[string]ir.ArtifactRecord
	order     []string
}

// Write writes res to the output directory as a new build.
func (w *Writer) Write(ctx context.Context, res *codegen.Result) (*Report, error) {
	root, err := filepath.Abs(w.root)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	prev, err := w.previous(ctx, root)
	if err != nil {
		return nil, err
	}

	incremental := res.Mode == codegen.ModeHotReload
	report := &Report{BuildID: w.ids.Generate()}
	records := make([]ir.ArtifactRecord, 0, len(res.Artifacts))
	current := make(map[string]bool, len(res.Artifacts))

	for _, a := range res.Artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := w.target(root, a.LogicalName)
		if err != nil {
			return nil, err
		}
		current[a.LogicalName] = true

		rec := ir.ArtifactRecord{
			OutDir:      root,
			LogicalName: a.LogicalName,
			Kind:        a.Kind,
			Hash:        a.Hash,
			BuildID:     report.BuildID,
		}

		if old, ok := prev.artifacts[a.LogicalName]; ok && incremental && old.Hash == a.Hash && fileExists(path) {
			rec.BuildID = old.BuildID
			report.Unchanged = append(report.Unchanged, a.LogicalName)
			records = append(records, rec)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", a.LogicalName, err)
		}
		if err := atomicWriteFile(path, a.Content, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", a.LogicalName, err)
		}
		report.Written = append(report.Written, a.LogicalName)
		records = append(records, rec)
	}

	for _, name := range prev.order {
		if current[name] {
			continue
		}
		path, err := w.target(root, name)
		if err != nil {
			return nil, err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale %s: %w", name, err)
		}
		pruneEmptyDirs(root, filepath.Dir(path))
		report.Removed = append(report.Removed, name)
	}

	report.Seq = prev.seq + 1
	if w.store != nil {
		seq, err := w.store.RecordBuild(ctx, ir.Build{
			ID:            report.BuildID,
			OutDir:        root,
			Mode:          string(res.Mode),
			ArtifactCount: len(records),
		}, records)
		if err != nil {
			return nil, err
		}
		report.Seq = seq
	}

	manifest := &Manifest{
		Build:     report.BuildID,
		Seq:       report.Seq,
		Mode:      string(res.Mode),
		Generator: ir.GeneratorVersion,
		Artifacts: make([]ManifestEntry, len(records)),
	}
	for i, r := range records {
		manifest.Artifacts[i] = ManifestEntry{Name: r.LogicalName, Kind: string(r.Kind), Hash: r.Hash, Build: r.BuildID}
	}
	if err := writeManifest(root, manifest); err != nil {
		return nil, err
	}

	w.logger.Info("build written",
		"dir", root,
		"build", report.BuildID,
		"seq", report.Seq,
		"written", len(report.Written),
		"unchanged", len(report.Unchanged),
		"removed", len(report.Removed))
	return report, nil
}

func (w *Writer) previous(ctx context.Context, root string) (previous, error) {
	prev := previous{artifacts: make(map[string]ir.ArtifactRecord)}

	if w.store != nil {
		build, err := w.store.LatestBuild(ctx, root)
		if errors.Is(err, store.ErrNotFound) {
			return prev, nil
		}
		if err != nil {
			return prev, err
		}
		prev.seq = build.Seq

		records, err := w.store.ReadArtifacts(ctx, root)
		if err != nil {
			return prev, err
		}
		for _, r := range records {
			prev.artifacts[r.LogicalName] = r
			prev.order = append(prev.order, r.LogicalName)
		}
		return prev, nil
	}

	m, err := ReadManifest(root)
	if errors.Is(err, fs.ErrNotExist) {
		return prev, nil
	}
	if err != nil {
		return prev, err
	}
	prev.seq = m.Seq
	for _, e := range m.Artifacts {
		prev.artifacts[e.Name] = ir.ArtifactRecord{
			OutDir:      root,
			LogicalName: e.Name,
			Kind:        ir.ArtifactKind(e.Kind),
			Hash:        e.Hash,
			BuildID:     e.Build,
		}
		prev.order = append(prev.order, e.Name)
	}
	return prev, nil
}

// target maps a logical name onto a path under root, rejecting names that
// would escape it.
func (w *Writer) target(root, logicalName string) (string, error) {
	rel := filepath.FromSlash(logicalName)
	if !filepath.IsLocal(rel) || rel == ManifestFile {
		return "", fmt.Errorf("invalid artifact name %q", logicalName)
	}
	return filepath.Join(root, rel), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// pruneEmptyDirs removes dir and its parents up to (not including) root
// while they are empty.
func pruneEmptyDirs(root, dir string) {
	for dir != root && len(dir) > len(root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// atomicWriteFile writes content to path by writing to a temp file in the same directory
// and then renaming it over the destination.
func atomicWriteFile(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
