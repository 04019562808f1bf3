// treekit plan [path]
package cmd

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/treekit-build/treekit/internal/builder"
	"github.com/treekit-build/treekit/internal/msg"
)

var flagAllTargets bool

func printPlan(plan *builder.BuildPlan) {
	data, err := toml.Marshal(plan)
	if err != nil {
		msg.Fatal("failed to marshal plan: %v", err)
	}
	os.Stdout.Write(data)
}

func doPlan(cmd *cobra.Command, args []string) {
	b, opts := makeBuilder(cmd, args)

	if flagAllTargets {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		// the matrix re-reads the config once per triple so conditional
		// sections are evaluated against each target, not the host
		plans, err := builder.PlanMatrix(dir, opts, builder.LocateBundle)
		if err != nil {
			msg.Fatal("%v", err)
		}
		for i, plan := range plans {
			if i > 0 {
				fmt.Println()
			}
			printPlan(plan)
		}
		return
	}

	plan, err := b.Plan(opts, builder.LocateBundle)
	if err != nil {
		msg.Fatal("%v", err)
	}
	printPlan(plan)
}

var planCmd = &cobra.Command{
	Use:   "plan [source path]",
	Short: "Print the build plan without building",
	Long: `Resolve sources, options and the target triple into a build plan and print
it as TOML. The plan is exactly what a build with the same switches would
hand to the emitter; nothing is compiled or fetched.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	addPlanFlags(planCmd)
	planCmd.Flags().BoolVar(&flagAllTargets, "all-targets", false, "Plan every supported target triple")
}
