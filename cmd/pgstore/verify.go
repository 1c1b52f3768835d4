package main

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pandagen/blockstore/jrnl"
	"github.com/pandagen/blockstore/wal"
)

const verifyWorkers = 8

// checkOverlap fails if two recovered extents share a block.
func checkOverlap(entries []wal.AllocationEntry) error {
	es := make([]wal.AllocationEntry, 0, len(entries))
	for _, e := range entries {
		if e.NBlocks() > 0 {
			es = append(es, e)
		}
	}
	sort.Slice(es, func(i, j int) bool { return es[i].FirstBlock < es[j].FirstBlock })
	for i := 1; i < len(es); i++ {
		prev := es[i-1]
		if prev.FirstBlock+prev.NBlocks() > es[i].FirstBlock {
			return errors.Errorf("object %v version %v overlaps object %v version %v at block %d",
				prev.Object, prev.Version, es[i].Object, es[i].Version, es[i].FirstBlock)
		}
	}
	return nil
}

// readAll reads every recovered object version, verifyWorkers at a time.
func readAll(cmd *cobra.Command, s *jrnl.Storage, entries []wal.AllocationEntry) error {
	group, ctx := errgroup.WithContext(cmd.Context())
	group.SetLimit(verifyWorkers)
	for _, e := range entries {
		e := e
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := s.ReadObjectData(e.Object, e.Version)
			if err != nil {
				return err
			}
			if uint64(len(data)) != e.Size {
				return errors.Errorf("object %v version %v: read %d bytes, want %d",
					e.Object, e.Version, len(data), e.Size)
			}
			return nil
		})
	}
	return group.Wait()
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every recovered object version is readable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			entries := s.Objects()
			if err := checkOverlap(entries); err != nil {
				return err
			}
			if err := readAll(cmd, s, entries); err != nil {
				return err
			}
			r := s.RecoveryReport()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d versions in %d commits, %d log records discarded\n",
				len(entries), r.RecoveredCommits, r.DiscardedRecords)
			return nil
		},
	}
}
