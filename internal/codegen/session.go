package codegen

import (
	"context"
	"log/slog"
	"slices"

	"github.com/roach88/rulegen/internal/compiler"
	"github.com/roach88/rulegen/internal/ir"
	"github.com/roach88/rulegen/internal/source"
)

// Options holds the per-session generation settings.
type Options struct {
	PackageName string // fallback package for sources that declare none
	HotReload   bool
	Concurrency int // parallel parse limit, 0 means GOMAXPROCS
}

// Mode returns the emission mode selected by the options.
func (o Options) Mode() Mode {
	if o.HotReload {
		return ModeHotReload
	}
	return ModeAOT
}

// Session is one configured, not yet executed generation request.
//
// Sessions are built with FromFiles or FromPath and refined with chained
// setters:
//
//	artifacts, err := codegen.FromPath("rules", ir.ResourceUnspecified).
//		SetPackageName("com.acme").
//		WithHotReloadMode().
//		Generate(ctx)
//
// Every Generate call re-runs discovery, model building and emission.
// Nothing is cached between calls.
type Session struct {
	files    []string
	root     string
	walk     bool
	kind     ir.ResourceKind
	opts     Options
	registry *source.Registry
	logger   *slog.Logger
}

// Result is the outcome of a successful Generate.
type Result struct {
	Sources   []ir.SourceArtifact
	Model     *ir.Model
	Artifacts []ir.GeneratedArtifact
	Mode      Mode
}

// FromFiles creates a session over an explicit list of files, kept in the
// given order. kind == ir.ResourceUnspecified infers the kind per file.
func FromFiles(files []string, kind ir.ResourceKind) *Session {
	return &Session{files: slices.Clone(files), kind: kind}
}

// FromPath creates a session that walks root recursively.
// kind == ir.ResourceUnspecified collects every recognized file.
func FromPath(root string, kind ir.ResourceKind) *Session {
	return &Session{root: root, walk: true, kind: kind}
}

// SetPackageName sets the fallback package for sources without a package
// declaration.
func (s *Session) SetPackageName(name string) *Session {
	s.opts.PackageName = name
	return s
}

// WithHotReloadMode switches emission to the hot-reload strategy.
func (s *Session) WithHotReloadMode() *Session {
	s.opts.HotReload = true
	return s
}

// WithConcurrency bounds parallel parsing.
func (s *Session) WithConcurrency(n int) *Session {
	s.opts.Concurrency = n
	return s
}

// WithOptions replaces all options at once.
func (s *Session) WithOptions(opts Options) *Session {
	s.opts = opts
	return s
}

// WithRegistry overrides the resource kind registry. nil restores the default.
func (s *Session) WithRegistry(r *source.Registry) *Session {
	s.registry = r
	return s
}

// WithLogger sets the session logger. nil restores slog.Default().
func (s *Session) WithLogger(logger *slog.Logger) *Session {
	s.logger = logger
	return s
}

// Options returns a copy of the session options.
func (s *Session) Options() Options {
	return s.opts
}

func (s *Session) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// Locate loads the session's sources.
func (s *Session) Locate() ([]ir.SourceArtifact, error) {
	loc := source.NewLocator(s.registry, s.log())
	if s.walk {
		return loc.Walk(s.root, s.kind)
	}
	return loc.Files(s.files, s.kind)
}

// Build locates sources and builds the model without emitting artifacts.
func (s *Session) Build(ctx context.Context) ([]ir.SourceArtifact, *ir.Model, error) {
	sources, err := s.Locate()
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	model, err := compiler.Build(ctx, sources, compiler.Options{
		PackageName: s.opts.PackageName,
		Concurrency: s.opts.Concurrency,
		Logger:      s.log(),
	})
	if err != nil {
		return nil, nil, err
	}
	return sources, model, nil
}

// Run executes the full pipeline and returns the intermediate inventory
// alongside the artifacts.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	sources, model, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}

	mode := s.opts.Mode()
	artifacts, err := NewEmitter(mode, s.log()).Emit(ctx, model)
	if err != nil {
		return nil, err
	}

	s.log().Debug("generation complete",
		"sources", len(sources),
		"packages", len(model.Packages),
		"units", len(model.Units),
		"artifacts", len(artifacts),
		"mode", mode)

	return &Result{
		Sources:   sources,
		Model:     model,
		Artifacts: artifacts,
		Mode:      mode,
	}, nil
}

// Generate executes the session and returns the artifacts in emission order.
// On failure no artifacts are returned.
func (s *Session) Generate(ctx context.Context) ([]ir.GeneratedArtifact, error) {
	res, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.Artifacts, nil
}
