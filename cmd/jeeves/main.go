// Command jeeves runs the issue-lifecycle orchestrator: the viewer HTTP
// server, an offline reconciliation pass, and database migration, each as
// a cobra subcommand in the teacher's CLI style.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jeeves: %v\n", err)
		os.Exit(1)
	}
}
