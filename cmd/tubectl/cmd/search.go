package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Never2333/tfl-status/models"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stations through the full resolver chain",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := services(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		results := models.StationsFrom(svc.Resolver.Search(ctx, strings.Join(args, " ")))
		out := cmd.OutOrStdout()
		if searchJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "no stations found")
			return nil
		}
		for _, s := range results {
			names := make([]string, len(s.Lines))
			for i, l := range s.Lines {
				names[i] = l.DisplayName
			}
			fmt.Fprintf(out, "%-12s %-32s %s\n", s.ID, s.DisplayName, strings.Join(names, ", "))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}
