// Command goncalc evaluates formulas from the command line.
//
//	goncalc eval "[x] * 2" -p x=21
//	goncalc format "a+b*2"
//	goncalc check < formulas.txt
package main

import (
	"fmt"
	"os"

	"github.com/sandrolain/goncalc/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
