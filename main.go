package main

import (
	"os"

	"github.com/docqa/docqa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
