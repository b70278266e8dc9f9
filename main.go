package main

import "chorddht/cmd"

func main() {
	cmd.Execute()
}
