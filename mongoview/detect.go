package main

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/visemet/gdb-mongodb-server/layout"
)

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <mongod-binary>",
		Short: "Fingerprint a mongod executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := layout.DetectFingerprint(args[0])
			if err != nil {
				return err
			}

			server := "unknown"
			if !fp.Server.IsZero() {
				server = fp.Server.String()
			}
			toolchain := fp.Toolchain
			if toolchain == "" {
				toolchain = "unknown"
			}
			series := "unknown"
			if s, ok := layout.ToolchainSeries(fp.Toolchain); ok {
				series = s
			}
			debug := "no"
			if fp.DebugBuild {
				debug = "yes"
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Fact", "Value"})
			table.Append([]string{"server version", server})
			table.Append([]string{"toolchain", toolchain})
			table.Append([]string{"toolchain series", series})
			table.Append([]string{"debug symbols", debug})
			table.Render()
			return nil
		},
	}
}
