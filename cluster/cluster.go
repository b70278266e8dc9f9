// Package cluster launches and supervises a ring of node processes on
// the local machine.
package cluster

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"chorddht/config"
	"chorddht/dht"
)

// Launcher spawns node processes (re-invoking this binary's "node"
// command), joins them into one ring and seeds a workload.
type Launcher struct {
	cfg    config.Config
	binary string
	procs  []*exec.Cmd
}

// New creates a launcher that spawns nodes with the given configuration.
func New(cfg config.Config) (*Launcher, error) {
	binary, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate own binary: %v", err)
	}
	return &Launcher{cfg: cfg, binary: binary}, nil
}

// BootstrapAddr returns the host:port of the first node.
func (l *Launcher) BootstrapAddr() (string, int) {
	return l.cfg.Host, l.cfg.BasePort
}

// SpawnNode starts one node process on port. When bootstrapPort is
// nonzero the node joins the ring through that port after it is up.
func (l *Launcher) SpawnNode(port, bootstrapPort int) error {
	join := ""
	if bootstrapPort > 0 {
		join = fmt.Sprintf("%s:%d", l.cfg.Host, bootstrapPort)
	}
	return l.SpawnNodeAt(l.cfg.Host, port, join)
}

// SpawnNodeAt starts one node process bound to address:port, joining the
// ring at join (host:port) when join is nonempty.
func (l *Launcher) SpawnNodeAt(address string, port int, join string) error {
	args := []string{
		"node",
		"--address", address,
		"--port", fmt.Sprintf("%d", port),
		"--mode", l.cfg.Mode,
	}
	if join != "" {
		args = append(args, "--join", join)
	}

	cmd := exec.Command(l.binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn node on port %d: %v", port, err)
	}
	l.procs = append(l.procs, cmd)
	log.Printf("Spawned node process %d on port %d\n", cmd.Process.Pid, port)
	return nil
}

// BuildRing launches n nodes on consecutive ports starting at BasePort;
// every node after the first joins through the first. Blocks until the
// ring has had a few maintenance intervals to settle.
func (l *Launcher) BuildRing(n int) error {
	for i := 0; i < n; i++ {
		bootstrap := 0
		if i > 0 {
			bootstrap = l.cfg.BasePort
		}
		if err := l.SpawnNode(l.cfg.BasePort+i, bootstrap); err != nil {
			return err
		}
		time.Sleep(2 * l.cfg.Interval)
	}

	log.Println("Waiting for the ring to stabilize...")
	time.Sleep(5 * l.cfg.Interval)
	return nil
}

// Seed stores key-0..key-(k-1) with matching values through the
// bootstrap node.
func (l *Launcher) Seed(k int) error {
	client := dht.NewClient(l.cfg.Host, l.cfg.BasePort, l.cfg.RPCTimeout)
	for i := 0; i < k; i++ {
		key := fmt.Sprintf("key-%d", i)
		value := fmt.Sprintf("value-%d", i)
		if _, err := client.Put(key, value); err != nil {
			return fmt.Errorf("seed %s: %v", key, err)
		}
	}
	log.Printf("Seeded %d keys through port %d\n", k, l.cfg.BasePort)
	return nil
}

// Wait blocks until every spawned node process has exited.
func (l *Launcher) Wait() error {
	g := new(errgroup.Group)
	for _, cmd := range l.procs {
		g.Go(cmd.Wait)
	}
	return g.Wait()
}

// Shutdown kills every spawned node process.
func (l *Launcher) Shutdown() {
	for _, cmd := range l.procs {
		if cmd.Process != nil {
			if err := cmd.Process.Kill(); err != nil {
				log.Printf("Failed to kill process %d: %v\n", cmd.Process.Pid, err)
			}
		}
	}
}
