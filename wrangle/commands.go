package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/apparentlymart/adl-meta/adl"
)

func newDumpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <description.xml>",
		Short: "Dump the raw model structures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := loadModels(args[0], flags)
			if err != nil {
				return err
			}
			spew.Fdump(cmd.OutOrStdout(), models)
			return nil
		},
	}
}

func newTreeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <description.xml>",
		Short: "Print the derived model as a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := loadModels(args[0], flags)
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), modelTree(m).String())
			}
			return nil
		},
	}
}

func newSnapshotCmd(flags *globalFlags) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "snapshot <description.xml>",
		Short: "Write the model as JSON for the emitter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := loadModels(args[0], flags)
			if err != nil {
				return err
			}
			for _, m := range models {
				if outDir != "" {
					if err := adl.WriteSnapshots(filepath.Join(outDir, m.Name), m); err != nil {
						return err
					}
					continue
				}
				src, err := m.MarshalSnapshot()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(src))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "write one directory of JSON tables per core instead of printing")
	return cmd
}

func newDiffCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "Compare two model snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			b, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			diff, err := adl.DiffSnapshots(a, b)
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "snapshots match")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), diff)
			return fmt.Errorf("snapshots differ")
		},
	}
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <description.xml>",
		Short: "Report dropped instructions and derivation warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := loadModels(args[0], flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			dropped := 0
			for _, m := range models {
				d := m.Diagnostics
				fmt.Fprintf(out, "%s: %d instructions, %d dropped, %d warnings\n",
					m.Name, len(m.Instructions), len(d.Errors), len(d.Warnings))
				for _, err := range d.Errors {
					fmt.Fprintf(out, "  error: %s\n", err)
				}
				for _, w := range d.Warnings {
					fmt.Fprintf(out, "  warning: %s\n", w)
				}
				dropped += len(d.Errors)
			}
			if dropped > 0 {
				return fmt.Errorf("%d instruction(s) could not be resolved", dropped)
			}
			return nil
		},
	}
}
