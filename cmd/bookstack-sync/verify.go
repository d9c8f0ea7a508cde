package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/di/providers"
)

type verifyResult struct {
	Side     bookstack.Side `json:"side"`
	BaseURL  string         `json:"base_url"`
	Verified bool           `json:"verified"`
	Error    string         `json:"error,omitempty"`
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "verify [source|destination|all]",
		Short:     "Check that the configured API tokens are accepted",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(bookstack.SideSource), string(bookstack.SideDestination), "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sides := []bookstack.Side{bookstack.SideSource, bookstack.SideDestination}
			if len(args) == 1 && args[0] != "all" {
				side, err := bookstack.ParseSide(args[0])
				if err != nil {
					return err
				}
				sides = []bookstack.Side{side}
			}

			cfg, err := invoke[*config.Config](a)
			if err != nil {
				return err
			}
			syncHandle, err := invoke[*providers.SyncServiceHandle](a)
			if err != nil {
				return err
			}

			results := make([]verifyResult, 0, len(sides))
			var errs []error
			for _, side := range sides {
				res := verifyResult{Side: side, BaseURL: cfg.Source.BaseURL}
				if side == bookstack.SideDestination {
					res.BaseURL = cfg.Destination.BaseURL
				}
				if err := syncHandle.VerifyCredentials(cmd.Context(), side); err != nil {
					res.Error = err.Error()
					errs = append(errs, fmt.Errorf("%s: %w", side, err))
				} else {
					res.Verified = true
				}
				results = append(results, res)
			}

			if a.asJSON {
				if err := a.printJSON(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.Verified {
						fmt.Fprintf(a.out, "%-12s ok      %s\n", r.Side, r.BaseURL)
					} else {
						fmt.Fprintf(a.out, "%-12s FAILED  %s  %s\n", r.Side, r.BaseURL, r.Error)
					}
				}
			}
			return errors.Join(errs...)
		},
	}
}
