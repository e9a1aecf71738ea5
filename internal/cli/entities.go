package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newEntitiesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List detectable entity types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine(a.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			list := engine.ListEntities()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			fmt.Fprintf(out, "Supported entity types (%d):\n", list.Total)
			for _, e := range list.Entities {
				fmt.Fprintf(out, "  %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
