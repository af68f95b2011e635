package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/visemet/gdb-mongodb-server/target"
)

func segmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segments <core-file>",
		Short: "List the memory mappings recorded in a core dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := target.OpenCore(args[0])
			if err != nil {
				return err
			}
			defer core.Close()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Start", "End", "Size", "Perms"})
			for _, seg := range core.Segments() {
				perms := "--"
				if seg.Readable {
					perms = "r-"
				}
				if seg.Writable {
					perms = perms[:1] + "w"
				}
				table.Append([]string{
					fmt.Sprintf("0x%012x", seg.Vaddr),
					fmt.Sprintf("0x%012x", seg.Vaddr+seg.Size),
					fmt.Sprintf("%d", seg.Size),
					perms,
				})
			}
			table.Render()
			return nil
		},
	}
}
