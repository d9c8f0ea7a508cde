package main

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/di"
)

// app carries state shared by every subcommand. The container is built on
// first use so that --help and argument errors never touch configuration.
type app struct {
	flags    *config.Flags
	out      io.Writer
	injector *do.RootScope
	asJSON   bool
}

func invoke[T any](a *app) (T, error) {
	if a.injector == nil {
		a.injector = di.NewContainer(a.flags)
	}
	return do.Invoke[T](a.injector)
}

func (a *app) close() {
	if a.injector != nil {
		_ = a.injector.Shutdown()
	}
}

func (a *app) printJSON(v any) error {
	return json.MarshalWrite(a.out, v, jsontext.WithIndent("  "))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bookstack-sync",
		Short: "Copy books between BookStack instances",
		Long: `bookstack-sync copies a book, with its chapters, pages, tags and cover,
from a source BookStack instance to a destination instance over the REST API.
Every run creates new entities on the destination; nothing is updated or deleted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.flags = config.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print results as JSON")

	root.AddCommand(
		newBooksCmd(a),
		newVerifyCmd(a),
		newSyncCmd(a),
		newRunsCmd(a),
	)
	return root
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	// Interrupting a sync cancels it; the run is reported as CANCELED.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
