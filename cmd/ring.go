package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chorddht/cluster"
	"chorddht/config"
	"chorddht/dht"
)

var (
	ringNodes int
	ringKeys  int
)

func init() {
	ringCmd.Flags().IntVarP(&ringNodes, "nodes", "n", 3, "number of nodes to launch")
	ringCmd.Flags().IntVarP(&ringKeys, "keys", "k", 50, "number of keys to seed")
	rootCmd.AddCommand(ringCmd)
}

var ringCmd = &cobra.Command{
	Use:   "ring",
	Short: "Launch a ring of node processes and drop into the shell",
	Long: `Launch an N-node ring as separate node processes on consecutive ports
starting at CHORD_BASE_PORT, seed key-0..key-(K-1), then run the
interactive shell against the first node.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}

		launcher, err := cluster.New(cfg)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		defer launcher.Shutdown()

		if err := launcher.BuildRing(ringNodes); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		if err := launcher.Seed(ringKeys); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}

		host, port := launcher.BootstrapAddr()
		client := dht.NewClient(host, port, cfg.RPCTimeout)
		runShell(client, cfg, ringKeys)
	},
}
