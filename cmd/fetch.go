// treekit fetch [triple]
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/treekit-build/treekit/internal/builder"
	"github.com/treekit-build/treekit/internal/bundle"
	"github.com/treekit-build/treekit/internal/msg"
	"github.com/treekit-build/treekit/internal/target"
)

var (
	flagBundleSource string
	flagRegister     bool
)

func doFetch(cmd *cobra.Command, args []string) {
	if flagRegister && flagBundleSource == "" {
		msg.Fatal("--register requires --source")
	}

	triple := target.Host()
	if len(args) > 0 {
		var err error
		triple, err = target.ParseTriple(args[0])
		if err != nil {
			msg.Fatal("%v", err)
		}
	}

	dep, err := target.Classify(triple)
	if err != nil {
		msg.Fatal("%v", err)
	}

	b, err := builder.FetchBundle(dep, flagBundleSource)
	if err != nil {
		msg.Fatal("%v", err)
	}
	msg.Info("bundle %s available at %s", dep, b.Dir)

	if flagRegister {
		reg, err := bundle.LoadDefault()
		if err != nil {
			msg.Fatal("%v", err)
		}
		reg.SetSource(dep, flagBundleSource)

		path, err := bundle.DefaultPath()
		if err != nil {
			msg.Fatal("%v", err)
		}
		if err := reg.Save(path); err != nil {
			msg.Fatal("failed to save registry: %v", err)
		}
		msg.Info("registered %s -> %s", dep, flagBundleSource)
	}
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [triple]",
	Short: "Prefetch the wasm extension bundle for a target",
	Long: `Classify the given triple (or the host) and fetch its wasmtime-c-api
bundle into the cache, so a later build with the wasm extension works
offline.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&flagBundleSource, "source", "", "Override the bundle source (git:, gh:owner/repo, or a local path)")
	fetchCmd.Flags().BoolVar(&flagRegister, "register", false, "Record the --source in the bundle registry for future fetches")
}
