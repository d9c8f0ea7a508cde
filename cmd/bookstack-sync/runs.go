package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/faithconnect/bookstack-sync/internal/di/providers"
	"github.com/faithconnect/bookstack-sync/internal/domain"
	"github.com/faithconnect/bookstack-sync/internal/store"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		bookID int64
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List journaled sync runs, or show one",
		Long: `Lists sync runs recorded in the journal under --data-path, newest first.
Without a data path the journal lives in memory and is empty on every start.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			syncHandle, err := invoke[*providers.SyncServiceHandle](a)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				run, err := syncHandle.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.asJSON {
					return a.printJSON(run)
				}
				printRunDetail(a, run)
				return nil
			}

			page, err := syncHandle.ListRuns(cmd.Context(), store.RunFilter{
				SourceBookID: bookID,
				Limit:        limit,
				Cursor:       cursor,
			})
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(page)
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tSOURCE BOOK\tDEST BOOK\tSTATE")
			for _, r := range page.Items {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.SourceBookID, r.DestBookID, r.State)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if page.HasMore {
				fmt.Fprintf(a.out, "\nMore runs: --cursor %s\n", page.NextCursor)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&bookID, "book", 0, "Only runs for this source book")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Continue a previous listing")
	return cmd
}

func printRunDetail(a *app, run *domain.SyncRun) {
	fmt.Fprintf(a.out, "Run %s\n", run.ID)
	fmt.Fprintf(a.out, "  state:       %s\n", run.State)
	fmt.Fprintf(a.out, "  source:      %s book %d\n", run.SourceURL, run.SourceBookID)
	fmt.Fprintf(a.out, "  destination: %s book %d\n", run.DestURL, run.DestBookID)
	fmt.Fprintf(a.out, "  created:     %d chapters, %d pages\n", run.ChaptersCreated, run.PagesCreated)
	if run.State == domain.StateFailed {
		fmt.Fprintf(a.out, "  error:       %s %s\n", run.ErrorKind, run.ErrorMessage)
		fmt.Fprintf(a.out, "  failed step: %s (last completed %s)\n", run.FailedStep, run.LastCompleted)
		if run.FailedEntity != "" {
			fmt.Fprintf(a.out, "  entity:      %s %d\n", run.FailedEntity, run.FailedEntityID)
		}
	}
}
