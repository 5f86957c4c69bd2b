// Package main is the entry point for the source-management CLI.
package main

import (
	"github.com/thoth-station/source-management/cmd"
)

func main() {
	cmd.Execute()
}
