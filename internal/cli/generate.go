package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rulegen/internal/codegen"
	"github.com/roach88/rulegen/internal/ir"
	"github.com/roach88/rulegen/internal/outdir"
	"github.com/roach88/rulegen/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Source SourceFlags
	Out    string // output directory, empty means count only
	Cache  string // SQLite build cache path
}

// GenerateResult is the JSON payload of a successful generate.
type GenerateResult struct {
	Mode      string            `json:"mode"`
	Sources   int               `json:"sources"`
	Packages  int               `json:"packages"`
	Units     int               `json:"units"`
	Rules     int               `json:"rules"`
	Total     int               `json:"total"`
	Kinds     map[string]int    `json:"kinds"`
	Artifacts []ArtifactSummary `json:"artifacts"`
	Output    *OutputSummary    `json:"output,omitempty"`
}

// ArtifactSummary describes one generated artifact.
type ArtifactSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Hash string `json:"hash"`
}

// OutputSummary describes one written build.
type OutputSummary struct {
	Dir       string   `json:"dir"`
	Build     string   `json:"build"`
	Seq       int64    `json:"seq"`
	Written   []string `json:"written"`
	Unchanged []string `json:"unchanged"`
	Removed   []string `json:"removed"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <paths...>",
		Short: "Generate artifacts from rule sources",
		Long: `Generate Go artifacts from rule sources.

A single directory argument is walked recursively; otherwise every argument
is a source file. Without --out only the artifact inventory is reported.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args, cmd)
		},
	}

	opts.Source.addFlags(cmd, true)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output directory")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "SQLite build cache (requires --out)")

	return cmd
}

func runGenerate(opts *GenerateOptions, paths []string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	flags := opts.Source.resolve(cmd, opts.Config)
	session, err := LoadSession(paths, flags, opts.Logger)
	if err != nil {
		return formatter.Fail(err)
	}

	res, err := session.Run(cmd.Context())
	if err != nil {
		return formatter.Fail(err)
	}
	result := summarize(res)

	out := stringFlag(cmd, "out", opts.Out, opts.Config.OutDir)
	if out != "" {
		cache := stringFlag(cmd, "cache", opts.Cache, opts.Config.CacheDB)
		summary, err := writeBuild(cmd.Context(), res, out, cache, opts.Logger)
		if err != nil {
			return formatter.Fail(err)
		}
		result.Output = summary
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	printGenerateText(formatter, result)
	return nil
}

// writeBuild writes res under out, recording it in the build cache when
// cache is set.
func writeBuild(ctx context.Context, res *codegen.Result, out, cache string, logger *slog.Logger) (*OutputSummary, error) {
	writerOpts := []outdir.Option{outdir.WithLogger(logger)}
	if cache != "" {
		st, err := store.Open(cache)
		if err != nil {
			return nil, withCode(ErrCodeStore, err)
		}
		defer st.Close()
		writerOpts = append(writerOpts, outdir.WithStore(st))
	}

	report, err := outdir.NewWriter(out, writerOpts...).Write(ctx, res)
	if err != nil {
		return nil, withCode(ErrCodeWriteFailed, err)
	}
	return &OutputSummary{
		Dir:       out,
		Build:     report.BuildID,
		Seq:       report.Seq,
		Written:   nonNil(report.Written),
		Unchanged: nonNil(report.Unchanged),
		Removed:   nonNil(report.Removed),
	}, nil
}

func summarize(res *codegen.Result) *GenerateResult {
	result := &GenerateResult{
		Mode:      string(res.Mode),
		Sources:   len(res.Sources),
		Packages:  len(res.Model.Packages),
		Units:     len(res.Model.Units),
		Rules:     res.Model.RuleCount(),
		Total:     len(res.Artifacts),
		Kinds:     make(map[string]int),
		Artifacts: make([]ArtifactSummary, len(res.Artifacts)),
	}
	for kind, n := range codegen.CountByKind(res.Artifacts) {
		result.Kinds[string(kind)] = n
	}
	for i, a := range res.Artifacts {
		result.Artifacts[i] = ArtifactSummary{Name: a.LogicalName, Kind: string(a.Kind), Hash: a.Hash}
	}
	return result
}

func printGenerateText(f *OutputFormatter, r *GenerateResult) {
	w := f.Writer
	fmt.Fprintf(w, "%s Generated %d artifact(s) from %d source(s) %s\n\n",
		SuccessStyle.Render(checkMark), r.Total, r.Sources, MutedStyle.Render("["+r.Mode+"]"))
	fmt.Fprintf(w, "  packages: %d  units: %d  rules: %d\n\n", r.Packages, r.Units, r.Rules)

	fmt.Fprintln(w, TitleStyle.Render("Artifacts:"))
	for _, kind := range ir.ArtifactKinds {
		if n := r.Kinds[string(kind)]; n > 0 {
			fmt.Fprintf(w, "  %-20s %d\n", kind, n)
		}
	}
	if f.Verbose {
		fmt.Fprintln(w)
		for _, a := range r.Artifacts {
			fmt.Fprintf(w, "  %s %s\n", PathStyle.Render(a.Name), MutedStyle.Render(a.Kind))
		}
	}

	if r.Output != nil {
		fmt.Fprintln(w)
		printOutputText(w, r.Output)
	}
}

func printOutputText(w io.Writer, o *OutputSummary) {
	fmt.Fprintf(w, "%s Wrote build %d to %s: %d written, %d unchanged, %d removed\n",
		arrowMark, o.Seq, PathStyle.Render(o.Dir), len(o.Written), len(o.Unchanged), len(o.Removed))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
