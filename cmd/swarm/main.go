package main

import (
	"fmt"
	"os"

	"github.com/wangchlxt/Swarm-sub001/cmd/swarm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
