package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"courtstats/internal/cli"
	"courtstats/internal/config"
	applog "courtstats/internal/log"
)

func sourcesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List workbooks in the configured row source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cli.OpenSource(cmd.Context(), cfg, applog.Discard())
			if err != nil {
				return err
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}

			list, err := res.Source.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no sources)")
				return nil
			}
			for _, s := range list {
				if s.ModifiedAt.IsZero() {
					fmt.Fprintln(cmd.OutOrStdout(), s.Ref)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-32s %8d  %s\n", s.Ref, s.Size, s.ModifiedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
