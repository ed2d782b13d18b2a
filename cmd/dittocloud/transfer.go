package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittocloud/pkg/config"
	"github.com/marmos91/dittocloud/pkg/fs"
	"github.com/marmos91/dittocloud/pkg/schedule"
	"github.com/marmos91/dittocloud/pkg/transfer"
	"github.com/spf13/cobra"
)

type transferFlags struct {
	dryRun    bool
	force     bool
	scheduled bool
}

func (f *transferFlags) register(cmd *cobra.Command, verb string) {
	cmd.Flags().BoolVarP(&f.dryRun, "dryrun", "d", false, "show what would be "+verb+" without doing it")
	cmd.Flags().BoolVarP(&f.scheduled, "scheduled", "s", false, "wait for the configured schedule window before each transfer")
}

func newPutCmd(a *app) *cobra.Command {
	var flags transferFlags

	cmd := &cobra.Command{
		Use:   "put <local> [remote-folder]",
		Short: "Upload a file or directory tree into a remote folder",
		Long: `Upload a file or directory tree into a remote folder (default: current
directory). A directory is mirrored as a folder of the same name.

Files are only uploaded when their size or modification time differs from
the remote copy, unless --force is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := refArg(args, 1)
			if err != nil {
				return err
			}
			opts := transfer.Options{
				Verbose:   a.verbose,
				IfChanged: !flags.force,
				DryRun:    flags.dryRun,
				Schedule:  flags.scheduled,
			}
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				report, err := rt.Engine.Put(ctx, args[0], target, opts)
				if err != nil {
					return err
				}
				return printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report, a.verbose)
			})
		},
	}

	flags.register(cmd, "uploaded")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "upload even when the remote copy looks unchanged")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var flags transferFlags

	cmd := &cobra.Command{
		Use:   "get <remote> [local-dir]",
		Short: "Download a file or folder tree into a local directory",
		Long: `Download a file or folder tree into a local directory (default: working
directory). A folder is mirrored as a directory of the same name.

Existing local files are kept unless --force is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := fs.ParseRef(args[0])
			if err != nil {
				return err
			}
			localDir := ""
			if len(args) == 2 {
				localDir = args[1]
			} else if localDir, err = os.Getwd(); err != nil {
				return err
			}
			opts := transfer.Options{
				Verbose:   a.verbose,
				IfMissing: !flags.force,
				DryRun:    flags.dryRun,
				Schedule:  flags.scheduled,
			}
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				report, err := rt.Engine.Get(ctx, ref, localDir, opts)
				if err != nil {
					return err
				}
				return printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report, a.verbose)
			})
		},
	}

	flags.register(cmd, "downloaded")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "download even when the local file exists")
	return cmd
}

// printReport lists what happened and returns the aggregated failures.
func printReport(out, errOut io.Writer, report *transfer.Report, verbose int) error {
	verb := "Transferred"
	if report.DryRun {
		verb = "Would transfer"
	}
	for _, o := range report.Succeeded {
		fmt.Fprintf(out, "%s %s -> %s (%s, %s)\n", verb, source(o), dest(o), o.Reason, humanize.Bytes(uint64(o.Bytes)))
	}
	if verbose > 1 {
		for _, o := range report.Skipped {
			fmt.Fprintf(out, "Skipped %s (%s)\n", source(o), o.Reason)
		}
	}
	for _, f := range report.Failed {
		fmt.Fprintf(errOut, "Failed %v\n", f)
	}
	fmt.Fprintln(out, report.Summary())
	return report.Err()
}

func source(o transfer.Outcome) string {
	if o.Direction == schedule.Download {
		return o.Remote
	}
	return o.Local
}

func dest(o transfer.Outcome) string {
	if o.Direction == schedule.Download {
		return o.Local
	}
	return o.Remote
}
