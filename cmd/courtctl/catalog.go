package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"courtstats/internal/catalog"
)

func catalogCmd(opts *rootOptions) *cobra.Command {
	var check string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the active venue catalog, or validate one with --check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if check != "" {
				if _, err := catalog.Load(check); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", check)
				return nil
			}

			cat, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			out, err := cat.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&check, "check", "", "validate the catalog file at this path")
	return cmd
}
