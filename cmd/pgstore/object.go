package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pandagen/blockstore/common"
)

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <object|new> <file>",
		Short: "Store the contents of file as a new version of object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := common.NewObjectId()
			if args[0] != "new" {
				var err error
				if o, err = common.ParseObjectId(args[0]); err != nil {
					return err
				}
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return errors.WithStack(err)
			}

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			tx := s.Begin()
			v, err := s.Write(tx, o, data)
			if err != nil {
				s.Rollback(tx)
				return err
			}
			// a stale superblock still means the object was stored
			if err := s.Commit(tx); err != nil && !errors.Is(err, common.ErrSuperblockStale) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v %v\n", o, v)
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	var version string
	c := &cobra.Command{
		Use:   "get <object>",
		Short: "Write an object's data to standard output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := common.ParseObjectId(args[0])
			if err != nil {
				return err
			}
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var v common.VersionId
			if version != "" {
				v, err = common.ParseVersionId(version)
			} else {
				v, err = s.Latest(o)
			}
			if err != nil {
				return err
			}
			data, err := s.ReadObjectData(o, v)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return errors.WithStack(err)
		},
	}
	c.Flags().StringVar(&version, "version", "", "version to read instead of the latest")
	return c
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List every recovered object version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "OBJECT\tVERSION\tBLOCK\tSIZE\t")
			for _, e := range s.Objects() {
				mark := ""
				if latest, _ := s.Latest(e.Object); latest == e.Version {
					mark = "latest"
				}
				fmt.Fprintf(w, "%v\t%v\t%d\t%d\t%s\n", e.Object, e.Version, e.FirstBlock, e.Size, mark)
			}
			return w.Flush()
		},
	}
}
