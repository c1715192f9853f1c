// Command rulegen generates Go artifacts from rule sources.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/roach88/rulegen/internal/cli"
	"github.com/roach88/rulegen/internal/ir"
)

func main() {
	if err := fang.Execute(
		context.Background(),
		cli.NewRootCommand(),
		fang.WithVersion(ir.GeneratorVersion),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
