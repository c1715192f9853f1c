package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rulegen/internal/codegen"
	"github.com/roach88/rulegen/internal/config"
	"github.com/roach88/rulegen/internal/source"
)

// SourceFlags are the session flags shared by generate, validate and watch.
type SourceFlags struct {
	Kind        string
	Package     string
	HotReload   bool
	Concurrency int
}

func (f *SourceFlags) addFlags(cmd *cobra.Command, hotReload bool) {
	cmd.Flags().StringVar(&f.Kind, "kind", "", "resource kind for every source (drl|dtable), inferred per file when empty")
	cmd.Flags().StringVar(&f.Package, "package", "", "fallback package for sources without a package declaration")
	cmd.Flags().IntVar(&f.Concurrency, "concurrency", 0, "parallel parse limit (0 = GOMAXPROCS)")
	if hotReload {
		cmd.Flags().BoolVar(&f.HotReload, "hot-reload", false, "emit hot-reload package descriptors")
	}
}

// resolve fills every flag the user did not set from cfg.
func (f SourceFlags) resolve(cmd *cobra.Command, cfg *config.Config) SourceFlags {
	if cfg == nil {
		return f
	}
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if !changed("kind") {
		f.Kind = cfg.Kind
	}
	if !changed("package") {
		f.Package = cfg.Package
	}
	if !changed("hot-reload") {
		f.HotReload = cfg.HotReload
	}
	if !changed("concurrency") {
		f.Concurrency = cfg.Concurrency
	}
	return f
}

// stringFlag returns the flag value when set, otherwise fallback.
func stringFlag(cmd *cobra.Command, name, value, fallback string) string {
	if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
		return value
	}
	if value != "" {
		return value
	}
	return fallback
}

// LoadSession builds an unexecuted session over paths. A single directory
// is walked recursively; anything else is an explicit file list.
func LoadSession(paths []string, flags SourceFlags, logger *slog.Logger) (*codegen.Session, error) {
	if len(paths) == 0 {
		return nil, withCode(ErrCodeUsage, errors.New("no source paths given"))
	}
	kind, err := source.Default().ParseKind(flags.Kind)
	if err != nil {
		return nil, err
	}

	var s *codegen.Session
	if len(paths) == 1 && isDir(paths[0]) {
		s = codegen.FromPath(paths[0], kind)
	} else {
		s = codegen.FromFiles(paths, kind)
	}
	return s.WithOptions(codegen.Options{
		PackageName: flags.Package,
		HotReload:   flags.HotReload,
		Concurrency: flags.Concurrency,
	}).WithLogger(logger), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
