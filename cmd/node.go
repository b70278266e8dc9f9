package cmd

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chorddht/config"
	"chorddht/dht"
)

var (
	nodeAddress string
	nodePort    int
	nodeMode    string
	nodeJoin    string
)

func init() {
	nodeCmd.Flags().StringVar(&nodeAddress, "address", "", "address to bind (default from CHORD_HOST)")
	nodeCmd.Flags().IntVar(&nodePort, "port", 0, "port to bind (default from CHORD_BASE_PORT)")
	nodeCmd.Flags().StringVar(&nodeMode, "mode", "", "routing mode: finger or basic (default from CHORD_MODE)")
	nodeCmd.Flags().StringVar(&nodeJoin, "join", "", "host:port of a ring member to join")
	rootCmd.AddCommand(nodeCmd)
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run one ring node",
	Long:  `Run one Chord ring node, serving peers and clients over RPC until the process exits.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		if nodeAddress == "" {
			nodeAddress = cfg.Host
		}
		if nodePort == 0 {
			nodePort = cfg.BasePort
		}
		if nodeMode == "" {
			nodeMode = cfg.Mode
		}

		mode, err := dht.ParseMode(nodeMode)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}

		transport := dht.NewRPCTransport(cfg.RPCTimeout)
		node := dht.NewNode(nodeAddress, nodePort, mode, transport, cfg.Interval)
		server := dht.NewServer(node)

		if nodeJoin != "" {
			bootstrap, err := parseEndpoint(nodeJoin)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			go func() {
				// Give the local listener a moment to come up first.
				time.Sleep(cfg.RPCTimeout)
				if err := node.Join(bootstrap); err != nil {
					log.Printf("Join via %s failed: %v\n", nodeJoin, err)
				}
			}()
		}

		if err := server.Start(); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	},
}

// parseEndpoint turns host:port into a node reference.
func parseEndpoint(endpoint string) (dht.NodeRef, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return dht.NodeRef{}, fmt.Errorf("bad endpoint %q: %v", endpoint, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return dht.NodeRef{}, fmt.Errorf("bad port in %q: %v", endpoint, err)
	}
	return dht.NewNodeRef(host, port), nil
}
