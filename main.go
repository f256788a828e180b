package main

import (
	"os"

	"github.com/rtzll/ytchat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
