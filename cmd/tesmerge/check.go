package main

// checkCmd is the -C preset as its own subcommand: identical flags to
// merge, but CheckReferences is always on.
type checkCmd struct {
	mergeCmd
}

// Execute forces the check-references preset before delegating to the
// merge command's logic.
func (c *checkCmd) Execute(args []string) error {
	c.mergeCmd.CheckReferences = true
	return c.mergeCmd.Execute(args)
}
