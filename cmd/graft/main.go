package main

import (
	"fmt"
	"os"

	"github.com/sokada/graft"
)

func main() {
	if err := graft.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
