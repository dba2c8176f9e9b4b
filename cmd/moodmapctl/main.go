package main

import (
	"os"

	"moodmap-go/cmd/moodmapctl/tool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
