package main

import (
	"os"

	"github.com/PreboozedGoose/Vulture/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
