// treekit [path], treekit build [path]
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/treekit-build/treekit/internal/builder"
	"github.com/treekit-build/treekit/internal/msg"
	"github.com/treekit-build/treekit/internal/target"
)

var (
	flagProfile     string
	flagTarget      string
	flagWasm        bool
	flagShared      bool
	flagAmalgamated bool

	flagGenerator EnumValue = NewEnumValue("cc", map[string]string{
		"cc":    "Compile directly with the system C compiler (default)",
		"ninja": "Generates a build.ninja file",
	})
)

// resolveTriple parses --target, defaulting to the host triple.
func resolveTriple() target.Triple {
	if flagTarget == "" {
		return target.Host()
	}
	t, err := target.ParseTriple(flagTarget)
	if err != nil {
		msg.Fatal("%v", err)
	}
	return t
}

// makeBuilder constructs a builder for the directory argument and merges the
// CLI switches over the [build] defaults from Treekit.toml. Only flags the
// user actually set override the config.
func makeBuilder(cmd *cobra.Command, args []string) (*builder.Builder, builder.Options) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	b, err := builder.NewBuilderInDirectory(dir, resolveTriple())
	if err != nil {
		msg.Fatal("%v", err)
	}

	opts := b.Options()
	if cmd.Flags().Changed("wasm") {
		opts.Wasm = flagWasm
	}
	if cmd.Flags().Changed("shared") {
		opts.Shared = flagShared
	}
	if cmd.Flags().Changed("amalgamated") {
		opts.Amalgamated = flagAmalgamated
	}
	return b, opts
}

func doBuild(cmd *cobra.Command, args []string) {
	b, opts := makeBuilder(cmd, args)
	if err := b.Build(opts, flagProfile, flagGenerator.Value()); err != nil {
		msg.Fatal("%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "treekit [source path]",
	Short: "Build configurator for the treekit C library",
	Long:  `Plans and builds the treekit C parsing library for a target platform.`,
	Args:  cobra.MinimumNArgs(1),
	Run:   doBuild,
}

var buildCmd = &cobra.Command{
	Use:   "build [source path]",
	Short: "Build the library",
	Long:  `Build the library. If no source path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	addPlanFlags(rootCmd)
	addEmitFlags(rootCmd)

	// treekit build subcommand
	rootCmd.AddCommand(buildCmd)
	addPlanFlags(buildCmd)
	addEmitFlags(buildCmd)
}

// addPlanFlags registers the planning switches shared by build and plan.
func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagTarget, "target", "t", "", "Target triple (arch-os[-abi]), defaults to the host")
	cmd.Flags().BoolVarP(&flagWasm, "wasm", "w", false, "Enable the wasm query extension")
	cmd.Flags().BoolVarP(&flagShared, "shared", "s", false, "Build a dynamic library instead of a static one")
	cmd.Flags().BoolVarP(&flagAmalgamated, "amalgamated", "a", false, "Compile the single amalgamated source file")
}

// addEmitFlags registers the switches that only matter when actually building.
func addEmitFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagProfile, "profile", "p", "debug", "Build with the given profile")
	cmd.Flags().VarP(&flagGenerator, "gen", "g", "Generator to build with, one of "+flagGenerator.HelpString())
	cmd.RegisterFlagCompletionFunc("gen", flagGenerator.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
