package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arloliu/ebmlkit"
)

func newSetTitleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-title FILE TITLE",
		Short: "Set the segment title and save in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ebmlkit.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			seg, ok := f.Segment()
			if !ok {
				return fmt.Errorf("%s: no segment", args[0])
			}
			if err := seg.SetTitle(args[1]); err != nil {
				return err
			}

			return f.SaveChanges(cmd.Context(), nil)
		},
	}
}

func newAttachCmd() *cobra.Command {
	var name, mime, description string
	cmd := &cobra.Command{
		Use:   "attach FILE ATTACHMENT",
		Short: "Attach a file to the segment and save in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			f, err := ebmlkit.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			seg, ok := f.Segment()
			if !ok {
				return fmt.Errorf("%s: no segment", args[0])
			}
			// The stored FileName is the bare file name, not the path it
			// was read from.
			if name == "" {
				name = filepath.Base(args[1])
			}
			att, err := seg.AddAttachment(name, mime, description)
			if err != nil {
				return err
			}
			if err := att.SetData(data); err != nil {
				return err
			}

			return f.SaveChanges(cmd.Context(), nil)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "stored file name (default: base name of ATTACHMENT)")
	cmd.Flags().StringVar(&mime, "mime", "application/octet-stream", "attachment MIME type")
	cmd.Flags().StringVar(&description, "description", "", "attachment description")

	return cmd
}
