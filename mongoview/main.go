// mongoview inspects mongod binaries and core dumps from the command line:
// fingerprinting a binary, listing a core file's memory mappings, and
// showing the printer collections the decoding engine would apply.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/visemet/gdb-mongodb-server/target"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mongoview",
		Short:         "Inspect mongod binaries and core dumps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var verbosity int
	root.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "debug log verbosity")
	cobra.OnInitialize(func() {
		viper.SetEnvPrefix("MONGOVIEW")
		viper.AutomaticEnv()
		if verbosity > 0 {
			target.DebugLogf = func(level int, format string, args ...interface{}) {
				if level <= verbosity {
					fmt.Fprintf(os.Stderr, format+"\n", args...)
				}
			}
		}
	})

	root.AddCommand(detectCmd())
	root.AddCommand(segmentsCmd())
	root.AddCommand(collectionsCmd())
	return root
}
