package main

import (
	"fmt"
	"os"

	// Register generation backends
	_ "biochat/pkg/ai/providers"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
