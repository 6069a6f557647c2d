package main

import (
	"os"

	memoircmder "github.com/memoirhq/memoir/cmd/memoir"
)

func main() {
	cmd := memoircmder.NewMemoirCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
