package main

import (
	"io"
	"log"
	"os"
)

func init() {
	// Dependencies log through the default logger; keep it out of the
	// workload's streams.
	log.SetOutput(io.Discard)
}

func main() {
	os.Exit(root(os.Args[1:]...))
}
