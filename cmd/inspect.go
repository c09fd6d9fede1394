/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/substantialcattle5/redup/internal/manifest"
	"github.com/substantialcattle5/redup/internal/ui"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var showEntries bool
	cmd := &cobra.Command{
		Use:   "inspect <index>",
		Short: "Show the metadata and statistics of an index file",
		Long: `Print the session metadata, chunking parameters and deduplication
statistics stored in an index file. With --entries, also list every distinct
chunk with the positions it occupies in the original.

Example:
  redup inspect disk.img.reduced.rdix
  redup inspect --entries disk.img.reduced.rdix`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, compressionType, err := manifest.ReadFile(args[0])
			if err != nil {
				return err
			}
			idx, err := m.Index()
			if err != nil {
				return err
			}
			ui.PrintIndexInfo(cmd.OutOrStdout(), args[0], compressionType, m, idx.Stats(), showEntries)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showEntries, "entries", "e", false, "list every index entry")
	return cmd
}
