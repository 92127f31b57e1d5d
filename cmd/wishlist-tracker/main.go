// Package main is the entry point for the wishlist-tracker server.
package main

import (
	"os"

	"github.com/donaldgifford/wishlist-tracker/cmd/wishlist-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
