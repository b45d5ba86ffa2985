// Command tesmerge merges TES3 plugins according to one or more -m/--merge
// list specs, per mode, preset, and reference-handling flags.
package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/tes3tools/tesmerge/internal/vars"
)

type rootCmd struct {
	Merge   mergeCmd   `command:"merge" description:"Merge plugins according to one or more merge list specs"`
	Check   checkCmd   `command:"check" description:"Report reference problems without writing output (equivalent to -C)"`
	Version versionCmd `command:"version" description:"Show version information"`
}

func main() {
	var root rootCmd
	parser := flags.NewParser(&root, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

type versionCmd struct{}

// Execute prints the version information.
func (c *versionCmd) Execute(_ []string) error {
	vars.Print()
	return nil
}
