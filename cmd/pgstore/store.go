package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pandagen/blockstore/jrnl"
)

func newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Create an empty store, discarding whatever the device held",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			d, err := cfg.OpenDisk(true)
			if err != nil {
				return err
			}
			s, err := jrnl.Format(d)
			if err != nil {
				d.Close()
				return err
			}
			defer s.Close()
			sb := s.Superblock()
			fmt.Fprintf(cmd.OutOrStdout(), "formatted %s: %d blocks, %d data blocks, device %016x\n",
				cfg.Device, sb.NBlocks, sb.NDataBlocks(), sb.DeviceId)
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the superblock and what recovery found in the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			sb := s.Superblock()
			fmt.Fprintf(out, "device id:        %016x\n", sb.DeviceId)
			fmt.Fprintf(out, "format version:   %d\n", sb.Version)
			fmt.Fprintf(out, "blocks:           %d\n", sb.NBlocks)
			fmt.Fprintf(out, "log:              [%d, %d)\n", sb.LogStart, sb.LogStart+sb.LogBlocks)
			fmt.Fprintf(out, "bitmap:           [%d, %d)\n", sb.BitmapStart, sb.BitmapStart+sb.BitmapBlocks)
			fmt.Fprintf(out, "data:             [%d, %d)\n", sb.DataStart, sb.NBlocks)
			fmt.Fprintf(out, "commit sequence:  %d\n", sb.CommitSequence)
			fmt.Fprintf(out, "free data blocks: %d\n", s.NumFree())

			r := s.RecoveryReport()
			fmt.Fprintf(out, "recovered:        %d commits, last sequence %d\n", r.RecoveredCommits, r.LastSequence)
			fmt.Fprintf(out, "discarded:        %d records\n", r.DiscardedRecords)
			fmt.Fprintf(out, "empty slots:      %d\n", r.EmptySlots)
			return nil
		},
	}
}
