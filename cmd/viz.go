package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chorddht/config"
	"chorddht/dht"
	"chorddht/viz"
)

var (
	vizEntry  string
	vizListen string
)

func init() {
	vizCmd.Flags().StringVar(&vizEntry, "entry", "", "host:port of the entry node (default CHORD_HOST:CHORD_BASE_PORT)")
	vizCmd.Flags().StringVar(&vizListen, "listen", "localhost:8080", "address the visualizer serves on")
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Serve a live websocket view of the ring",
	Long:  `Serve a browser page that shows the ring topology and every node's stores, refreshed once per maintenance interval.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}

		entryHost, entryPort := cfg.Host, cfg.BasePort
		if vizEntry != "" {
			ref, err := parseEndpoint(vizEntry)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			entryHost, entryPort = ref.Address, ref.Port
		}

		client := dht.NewClient(entryHost, entryPort, cfg.RPCTimeout)
		server := viz.NewServer(vizListen, client, cfg.Interval)
		if err := server.Start(); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	},
}
