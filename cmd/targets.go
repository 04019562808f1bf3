// treekit targets
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/treekit-build/treekit/internal/target"
)

func doTargets(cmd *cobra.Command, args []string) {
	for _, triple := range target.Supported() {
		dep, err := target.Classify(triple)
		if err != nil {
			// every listed triple classifies; a failure here is a table bug
			panic(err)
		}
		fmt.Printf("%-24s %s\n", triple, dep)
	}
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List supported target triples",
	Long:  `List every supported target triple and the wasmtime-c-api bundle it maps to.`,
	Args:  cobra.NoArgs,
	Run:   doTargets,
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
