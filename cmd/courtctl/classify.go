package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"courtstats/internal/venue"
)

func classifyCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <title>...",
		Short: "Show which venue each activity title resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			c := venue.NewClassifier(cat)

			matches := make([]venue.Match, len(args))
			for i, title := range args {
				matches[i] = c.Explain(title)
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(matches)
			}
			for i, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s", args[i], m.Venue, m.Tier)
				if m.Alias != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " (%s)", m.Alias)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}
