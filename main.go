// Catgraph - class hierarchy graph with inherited properties.
//
// Catgraph extracts the class and interface hierarchy of a code base into an
// index and answers ancestor, descendant, bound and property queries over it,
// from the command line or as an MCP server.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/catgraph/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
