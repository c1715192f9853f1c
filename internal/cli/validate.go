package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rulegen/internal/codegen"
	"github.com/roach88/rulegen/internal/ir"
)

// ValidationResult is the inventory reported by validate.
type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Sources  []SourceSummary  `json:"sources"`
	Packages []PackageSummary `json:"packages"`
	Units    []ir.RuleUnit    `json:"units"`
	Expected int              `json:"expected_artifacts"`
}

// SourceSummary describes one located source.
type SourceSummary struct {
	Location string `json:"location"`
	Kind     string `json:"kind"`
	Hash     string `json:"hash"`
}

// PackageSummary describes one rule package.
type PackageSummary struct {
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
	Units []string `json:"units,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Source SourceFlags
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <paths...>",
		Short: "Check rule sources without generating artifacts",
		Long: `Locate, classify and parse rule sources and report the package and
unit inventory. Faster than generate for editing feedback; nothing is written.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	opts.Source.addFlags(cmd, false)

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	session, err := LoadSession(paths, opts.Source.resolve(cmd, opts.Config), opts.Logger)
	if err != nil {
		return formatter.Fail(err)
	}
	sources, model, err := session.Build(cmd.Context())
	if err != nil {
		return formatter.Fail(err)
	}

	result := inventory(sources, model)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	printValidateText(formatter, result)
	return nil
}

func inventory(sources []ir.SourceArtifact, model *ir.Model) ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Sources:  make([]SourceSummary, len(sources)),
		Packages: make([]PackageSummary, len(model.Packages)),
		Units:    model.Units,
		Expected: codegen.ExpectedTotal(model),
	}
	if result.Units == nil {
		result.Units = []ir.RuleUnit{}
	}
	for i, s := range sources {
		result.Sources[i] = SourceSummary{Location: s.Location, Kind: string(s.Kind), Hash: ir.SourceHash(s)}
	}
	for i, p := range model.Packages {
		names := make([]string, len(p.Rules))
		for j, r := range p.Rules {
			names[j] = r.Name
		}
		result.Packages[i] = PackageSummary{Name: p.Name, Rules: names, Units: p.UnitNames}
	}
	return result
}

func printValidateText(f *OutputFormatter, r ValidationResult) {
	w := f.Writer
	fmt.Fprintf(w, "%s %d source(s) valid\n\n", SuccessStyle.Render(checkMark), len(r.Sources))

	if f.Verbose {
		for _, s := range r.Sources {
			fmt.Fprintf(w, "  %s %s\n", PathStyle.Render(s.Location), MutedStyle.Render(s.Kind))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("Packages:"))
	for _, p := range r.Packages {
		fmt.Fprintf(w, "  %s: %d rule(s)\n", p.Name, len(p.Rules))
		if f.Verbose {
			for _, name := range p.Rules {
				fmt.Fprintf(w, "    %s\n", name)
			}
		}
	}

	if len(r.Units) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Units:"))
		for _, u := range r.Units {
			fmt.Fprintf(w, "  %s %s %v\n", u.Name, arrowMark, u.Packages)
		}
	}

	fmt.Fprintf(w, "\n%d artifact(s) would be generated\n", r.Expected)
}
