package main

import (
	"os"

	"github.com/justsurfingit/jobsearch-hub/cmd/api/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
