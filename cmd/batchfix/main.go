package main

import (
	"os"

	_ "batchfix/internal/source/all"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
