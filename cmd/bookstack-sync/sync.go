package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faithconnect/bookstack-sync/internal/di/providers"
	"github.com/faithconnect/bookstack-sync/internal/domain"
	"github.com/faithconnect/bookstack-sync/internal/logger"
	"github.com/faithconnect/bookstack-sync/internal/service"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <book-id>",
		Short: "Copy a source book to the destination",
		Long: `Copies the source book with its chapters, pages, tags and cover to the
destination instance. A failed run is not rolled back: the report names the
step and entity it stopped at so the partial copy can be cleaned up by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}

			syncHandle, err := invoke[*providers.SyncServiceHandle](a)
			if err != nil {
				return err
			}
			log, err := invoke[*logger.Logger](a)
			if err != nil {
				return err
			}

			run, syncErr := syncHandle.SyncBook(cmd.Context(), id)
			if run != nil {
				log.WithRun(run.ID, run.SourceBookID).Info("Sync finished",
					"state", run.State,
					"destination_book_id", run.DestBookID,
				)
			}

			if a.asJSON && run != nil {
				if err := a.printJSON(run); err != nil {
					return err
				}
			} else if run != nil {
				printRunReport(a, run, syncErr)
			}
			return syncErr
		},
	}
}

func printRunReport(a *app, run *domain.SyncRun, err error) {
	if err == nil {
		fmt.Fprintf(a.out, "Synced book %d to destination book %d (run %s)\n",
			run.SourceBookID, run.DestBookID, run.ID)
		fmt.Fprintf(a.out, "  chapters created: %d\n", run.ChaptersCreated)
		fmt.Fprintf(a.out, "  pages created:    %d\n", run.PagesCreated)
		return
	}

	fmt.Fprintf(a.out, "Sync of book %d failed (run %s)\n", run.SourceBookID, run.ID)
	var syncErr *service.SyncError
	if errors.As(err, &syncErr) {
		fmt.Fprintf(a.out, "  kind:           %s\n", syncErr.Kind())
		fmt.Fprintf(a.out, "  failed step:    %s\n", syncErr.Step)
		fmt.Fprintf(a.out, "  last completed: %s\n", syncErr.LastCompleted)
		if syncErr.Entity != "" {
			fmt.Fprintf(a.out, "  entity:         %s %d\n", syncErr.Entity, syncErr.SourceID)
		}
	}
	if run.DestBookID != 0 {
		fmt.Fprintf(a.out, "  partial copy left as destination book %d\n", run.DestBookID)
	}
}
