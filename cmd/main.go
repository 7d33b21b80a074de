package main

import (
	"os"

	"github.com/soundprediction/vectorgate/cmd/vectorgate"
)

func main() {
	if err := vectorgate.Execute(); err != nil {
		os.Exit(1)
	}
}
