package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arloliu/ebmlkit"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Print segment metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ebmlkit.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Fprint(cmd.OutOrStdout(), f.Summary())

			return nil
		},
	}
}

func newTreeCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree FILE",
		Short: "Print the element tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ebmlkit.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Fprint(cmd.OutOrStdout(), f.PrintChildren(depth))

			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 2, "levels to descend (0 = all)")

	return cmd
}

func newSpaceCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "space FILE",
		Short: "Print the byte layout of the element tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ebmlkit.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Fprint(cmd.OutOrStdout(), f.PrintSpace(depth))

			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 2, "levels to descend (0 = all)")

	return cmd
}
