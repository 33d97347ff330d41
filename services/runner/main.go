package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("runner failed", "err", err)
		os.Exit(1)
	}
}
