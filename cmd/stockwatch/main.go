package main

import (
	"os"

	"github.com/restock-systems/stockwatch/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
