package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chorddht/cluster"
	"chorddht/config"
	"chorddht/dht"
)

var (
	shellEntry string
	shellKeys  int
)

func init() {
	shellCmd.Flags().StringVar(&shellEntry, "entry", "", "host:port of the entry node (default CHORD_HOST:CHORD_BASE_PORT)")
	shellCmd.Flags().IntVar(&shellKeys, "keys", 50, "size of the seeded workload verified by 'check'")
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell against a running ring",
	Long: `Interactive shell against a running ring. Supported commands:
put K V, get K, check, get_all_data, add_node <id> <address> <port>,
leave_node <id> <address> <port>, exit.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}

		entryHost, entryPort := cfg.Host, cfg.BasePort
		if shellEntry != "" {
			ref, err := parseEndpoint(shellEntry)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			entryHost, entryPort = ref.Address, ref.Port
		}

		client := dht.NewClient(entryHost, entryPort, cfg.RPCTimeout)
		runShell(client, cfg, shellKeys)
	},
}

// runShell reads commands from stdin until EOF or exit.
func runShell(client *dht.Client, cfg config.Config, keyNums int) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}
		runShellCommand(client, cfg, keyNums, line)
	}
}

func runShellCommand(client *dht.Client, cfg config.Config, keyNums int, line string) {
	params := strings.Fields(line)

	switch params[0] {
	case "check":
		shellCheck(client, keyNums)

	case "get_all_data":
		shellDumpRing(client)

	case "add_node":
		if len(params) != 4 {
			fmt.Println("> Usage: add_node <node_id> <address> <port>")
			return
		}
		address := params[2]
		_, idErr := strconv.Atoi(params[1])
		port, err := strconv.Atoi(params[3])
		if idErr != nil || err != nil {
			fmt.Println("> Node ID and port must be integers.")
			return
		}
		launcher, err := cluster.New(cfg)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		if err := launcher.SpawnNodeAt(address, port, client.Entry().Addr()); err != nil {
			fmt.Println("Error:", err)
			return
		}
		// Let the new node come up and the ring absorb it.
		time.Sleep(5 * cfg.Interval)
		fmt.Printf("> node %d joined via %s\n", dht.HashID(fmt.Sprintf("%s:%d", address, port)), client.Entry().Addr())

	case "leave_node":
		if len(params) != 4 {
			fmt.Println("> Usage: leave_node <node_id> <address> <port>")
			return
		}
		address := params[2]
		_, idErr := strconv.Atoi(params[1])
		port, err := strconv.Atoi(params[3])
		if idErr != nil || err != nil {
			fmt.Println("> Node ID and port must be integers.")
			return
		}
		if err := client.Leave(dht.NewNodeRef(address, port)); err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Printf("> node at %s:%d left the ring\n", address, port)

	case "put":
		if len(params) != 3 {
			fmt.Println("> no support operation format")
			return
		}
		key, value := params[1], params[2]
		res, err := client.Put(key, value)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Printf("> hash_func(%s) = %d, put status is %s, this value will be stored in server-%d\n",
			key, dht.HashID(key), res.Status, res.NodeID)

	case "get":
		if len(params) != 2 {
			fmt.Println("> no support operation format")
			return
		}
		key := params[1]
		start := time.Now()
		res, err := client.Get(key)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Printf("> hash_func(%s) = %d, find key in server-%d, get status is %s.\n",
			key, dht.HashID(key), res.NodeID, res.Status)
		fmt.Printf("> get result: key: %s, value: %s\n", res.Key, res.Value)
		fmt.Printf("> query time: %v\n", elapsed)

	default:
		fmt.Println("> only support operations: put/get/check/get_all_data/add_node/leave_node")
	}
}

// shellCheck verifies the seeded workload key-i=value-i for every i.
func shellCheck(client *dht.Client, keyNums int) {
	start := time.Now()
	results := make([]string, 0, keyNums)

	for i := 0; i < keyNums; i++ {
		key := fmt.Sprintf("key-%d", i)
		expected := fmt.Sprintf("value-%d", i)
		res, err := client.Get(key)
		switch {
		case err != nil:
			results = append(results, fmt.Sprintf("%s: Error: %v", key, err))
		case res.Status != dht.StatusValid || res.Value != expected:
			results = append(results, fmt.Sprintf("%s: Error: expected %s, got %s", key, expected, res.Value))
		default:
			results = append(results, fmt.Sprintf("%s: OK", key))
		}
	}

	fmt.Printf("> query time: %v\n", time.Since(start))
	for _, r := range results {
		fmt.Println(r)
	}
}

// shellDumpRing walks the ring and prints every node's three stores.
func shellDumpRing(client *dht.Client) {
	refs, err := client.Walk()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	for _, ref := range refs {
		local, predReplica, succReplica, err := client.NodeData(ref)
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", ref, err)
			continue
		}
		fmt.Printf("node_id: %d (%s)\n", ref.ID, ref.Addr())
		printStore("  local", local)
		printStore("  predecessor", predReplica)
		printStore("  successor", succReplica)
	}
}

func printStore(label string, data map[string]string) {
	fmt.Printf("%s:\n", label)
	for k, v := range data {
		fmt.Printf("    hash(%s) = %d: %s\n", k, dht.HashID(k), v)
	}
}
