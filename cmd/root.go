package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chorddht",
	Short: "A Chord distributed hash table",
	Long:  `A Chord distributed hash table: run ring nodes, an interactive shell, a ring launcher and a visualizer`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
