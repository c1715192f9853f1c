package source

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/rulegen/internal/ir"
)

// Locator loads rule sources from the filesystem.
type Locator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewLocator creates a Locator over the given registry. A nil registry
// means Default(); a nil logger means slog.Default().
func NewLocator(registry *Registry, logger *slog.Logger) *Locator {
	if registry == nil {
		registry = Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{registry: registry, logger: logger}
}

// Files loads an explicit, caller-ordered list of files. Duplicate entries
// (same absolute path) are dropped, keeping the first occurrence. With
// kind == ResourceUnspecified each file is classified by its extension.
func (l *Locator) Files(files []string, kind ir.ResourceKind) ([]ir.SourceArtifact, error) {
	seen := make(map[string]bool, len(files))
	out := make([]ir.SourceArtifact, 0, len(files))

	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, ir.WrapError(ir.ErrResourceNotFound, file, "resolving path", err)
		}
		if seen[abs] {
			l.logger.Debug("skipping duplicate source", "path", file)
			continue
		}
		seen[abs] = true

		info, err := os.Stat(file)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ir.Errorf(ir.ErrResourceNotFound, file, 0, "source file does not exist")
		}
		if err != nil {
			return nil, ir.WrapError(ir.ErrResourceNotFound, file, "accessing source file", err)
		}
		if info.IsDir() {
			return nil, ir.Errorf(ir.ErrResourceNotFound, file, 0, "expected a file, found a directory")
		}

		resolved, err := l.registry.Classify(file, kind)
		if err != nil {
			return nil, err
		}

		src, err := load(file, resolved)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}

	l.logger.Debug("located explicit sources", "requested", len(files), "loaded", len(out))
	return out, nil
}

// Walk recursively collects every file under root that classifies to a
// registered kind (only kind itself when kind is set). Files with
// unrecognized extensions are skipped. The result is sorted by full path.
func (l *Locator) Walk(root string, kind ir.ResourceKind) ([]ir.SourceArtifact, error) {
	if kind != ir.ResourceUnspecified && !l.registry.Known(kind) {
		return nil, ir.Errorf(ir.ErrUnsupportedResourceType, root, 0, "unknown resource kind %q", kind)
	}

	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, ir.Errorf(ir.ErrResourceNotFound, root, 0, "source path does not exist")
	} else if err != nil {
		return nil, ir.WrapError(ir.ErrResourceNotFound, root, "accessing source path", err)
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		found, ok := l.registry.KindOf(path)
		if !ok {
			l.logger.Debug("skipping unrecognized file", "path", path)
			return nil
		}
		if kind != ir.ResourceUnspecified && found != kind {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, ir.WrapError(ir.ErrResourceNotFound, root, "walking source path", err)
	}

	sort.Strings(paths)

	out := make([]ir.SourceArtifact, 0, len(paths))
	for _, path := range paths {
		found, _ := l.registry.KindOf(path)
		src, err := load(path, found)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}

	l.logger.Debug("walked source path", "root", root, "loaded", len(out))
	return out, nil
}

func load(path string, kind ir.ResourceKind) (ir.SourceArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ir.SourceArtifact{}, ir.WrapError(ir.ErrResourceNotFound, path, "reading source file", err)
	}
	return ir.SourceArtifact{
		Location: path,
		Kind:     kind,
		Content:  data,
	}, nil
}
