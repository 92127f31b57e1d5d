// Package main is the entry point for the wlt CLI client.
package main

import (
	"github.com/donaldgifford/wishlist-tracker/cmd/wlt/cmd"
)

func main() {
	cmd.Execute()
}
