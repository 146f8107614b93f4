package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/stratum-mods/stratum/cmd/stratum"
)

func main() {
	rootCmd := stratum.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}
