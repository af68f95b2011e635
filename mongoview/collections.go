package main

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/visemet/gdb-mongodb-server/printers"
)

func collectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Show printer collections and their enabled state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := printers.NewDefaultRegistry()
			for _, name := range viper.GetStringSlice("enable") {
				if err := reg.SetEnabled(name, true); err != nil {
					return err
				}
			}
			for _, name := range viper.GetStringSlice("disable") {
				if err := reg.SetEnabled(name, false); err != nil {
					return err
				}
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Collection", "Enabled", "Printers"})
			for _, c := range reg.Collections() {
				enabled := "off"
				if c.Enabled {
					enabled = "on"
				}
				table.Append([]string{c.Name, enabled, strconv.Itoa(c.Size)})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringSlice("enable", nil, "collections to enable")
	cmd.Flags().StringSlice("disable", nil, "collections to disable")
	viper.BindPFlag("enable", cmd.Flags().Lookup("enable"))
	viper.BindPFlag("disable", cmd.Flags().Lookup("disable"))
	return cmd
}
