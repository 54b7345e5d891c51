package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "ebmlkit",
		Short: "Inspect and edit Matroska files in place",
	}

	root.AddCommand(newInfoCmd())
	root.AddCommand(newTreeCmd())
	root.AddCommand(newSpaceCmd())
	root.AddCommand(newSetTitleCmd())
	root.AddCommand(newAttachCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
