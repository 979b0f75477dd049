package main

import (
	"fmt"
	"os"

	"github.com/guaracyalima/xeco-public-sub002/checkoutctl/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
