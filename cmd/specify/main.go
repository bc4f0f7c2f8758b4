// Command specify manages spec-driven development projects and their
// extensions.
package main

import (
	"os"

	"github.com/barysiuk/specify/cmd/specify/cmd"
)

func main() {
	os.Exit(cmd.Main())
}
