package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/config"
	"github.com/marmos91/dittocloud/pkg/fs"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/spf13/cobra"
)

// ============================================================================
// ls
// ============================================================================

type lsOptions struct {
	long      bool
	human     bool
	recursive bool
}

func newLsCmd(a *app) *cobra.Command {
	var opts lsOptions

	cmd := &cobra.Command{
		Use:   "ls [folder]",
		Short: "List the children of a folder (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refArg(args, 0)
			if err != nil {
				return err
			}
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				return listFolder(ctx, cmd.OutOrStdout(), rt.Session, ref, opts)
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.long, "long", "l", false, "long listing: id, category, size and times")
	cmd.Flags().BoolVarP(&opts.human, "human", "H", false, "human readable sizes in long listings")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "R", false, "list subfolders recursively")
	return cmd
}

func listFolder(ctx context.Context, out io.Writer, s *fs.Session, ref fs.PathRef, opts lsOptions) error {
	item, err := s.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if !item.IsFolder() {
		return printItems(out, []*cache.Item{item}, opts)
	}

	// Folders are visited in listing order, breadth first within a folder.
	queue := []*cache.Item{item}
	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]

		children, err := s.Children(ctx, fs.ByID(folder.ID))
		if err != nil {
			return err
		}
		if opts.recursive {
			fmt.Fprintf(out, "%s:\n", folder.AbsolutePath)
		}
		if err := printItems(out, children, opts); err != nil {
			return err
		}
		if !opts.recursive {
			return nil
		}
		fmt.Fprintln(out)

		var sub []*cache.Item
		for _, child := range children {
			if child.IsFolder() {
				sub = append(sub, child)
			}
		}
		queue = append(sub, queue...)
	}
	return nil
}

func printItems(out io.Writer, items []*cache.Item, opts lsOptions) error {
	if !opts.long {
		for _, item := range items {
			fmt.Fprintln(out, item.Name)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\tc:%s\tm:%s\tu:%s\n",
			item.ID, item.Category, formatSize(item, opts.human), item.Name,
			cache.FormatTime(item.CreationTime),
			cache.FormatTime(item.LastModificationTime),
			cache.FormatTime(item.LastUploadTime))
	}
	return w.Flush()
}

func formatSize(item *cache.Item, human bool) string {
	if item.IsFolder() {
		return "-"
	}
	if human {
		return humanize.Bytes(uint64(item.Size))
	}
	return strconv.FormatInt(item.Size, 10)
}

// ============================================================================
// tree
// ============================================================================

func newTreeCmd(a *app) *cobra.Command {
	var times bool

	cmd := &cobra.Command{
		Use:   "tree [folder]",
		Short: "Print the hierarchy below a folder (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refArg(args, 0)
			if err != nil {
				return err
			}
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				return printTree(ctx, cmd.OutOrStdout(), rt.Session, ref, times)
			})
		},
	}

	cmd.Flags().BoolVarP(&times, "times", "t", false, "show creation, modification and upload times")
	return cmd
}

func printTree(ctx context.Context, out io.Writer, s *fs.Session, ref fs.PathRef, times bool) error {
	for entry, err := range s.Walk(ctx, ref) {
		if err != nil {
			if entry.Item == nil {
				return err
			}
			fmt.Fprintf(out, "%s    [%v]\n", entry.Prefix, err)
			continue
		}

		name := entry.Item.Name
		if entry.Depth == 0 {
			name = entry.Item.AbsolutePath
		}
		if times {
			name += fmt.Sprintf(" (c:%s, m:%s, u:%s)",
				cache.FormatTime(entry.Item.CreationTime),
				cache.FormatTime(entry.Item.LastModificationTime),
				cache.FormatTime(entry.Item.LastUploadTime))
		}
		fmt.Fprintln(out, entry.Prefix+name)
	}
	return nil
}

// ============================================================================
// pwd, cd
// ============================================================================

func newPwdCmd(a *app) *cobra.Command {
	var showID bool

	cmd := &cobra.Command{
		Use:   "pwd",
		Short: "Print the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				st := rt.Session.Pwd()
				if showID {
					fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%s\n", st.ID, st.Path)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), st.Path)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&showID, "id", "i", false, "also print the directory's item ID")
	return cmd
}

func newCdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cd [folder]",
		Short: "Change the current directory (default: /)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := fs.ByPath("/")
			if len(args) == 1 {
				var err error
				if ref, err = fs.ParseRef(args[0]); err != nil {
					return err
				}
			}
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				st, err := rt.Session.Cd(ctx, ref)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), st.Path)
				return nil
			})
		},
	}
}

// ============================================================================
// mkdir, mv, rm
// ============================================================================

func newMkdirCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder and any missing parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				id, err := rt.Session.Mkpath(ctx, args[0], dryRun)
				if err != nil {
					return err
				}
				if id == fs.NoID {
					fmt.Fprintf(cmd.OutOrStdout(), "Would create %s\n", args[0])
					return nil
				}
				item, err := rt.Session.Resolve(ctx, fs.ByID(id))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%s\n", item.ID, item.AbsolutePath)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dryrun", "d", false, "report what would be created without creating it")
	return cmd
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source> <target>",
		Short: "Move and/or rename an item",
		Long: `Move and/or rename an item.

When target is an existing folder the item moves into it. Otherwise target's
parent folders are created as needed and the item takes target's name.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				id, err := rt.Session.Mv(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				item, err := rt.Session.Resolve(ctx, fs.ByID(id))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%s\n", item.ID, item.AbsolutePath)
				return nil
			})
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Move an item to its device's recycle bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := fs.ParseRef(args[0])
			if err != nil {
				return err
			}
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				removed, err := rt.Session.Rm(ctx, ref)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", removed)
				return nil
			})
		},
	}
}

// ============================================================================
// props, path
// ============================================================================

func newPropsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "props <path>",
		Short: "Print the properties of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := fs.ParseRef(args[0])
			if err != nil {
				return err
			}
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				item, err := rt.Session.Resolve(ctx, ref)
				if err != nil {
					return err
				}
				return printProps(cmd.OutOrStdout(), item)
			})
		},
	}
}

func printProps(out io.Writer, item *cache.Item) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", item.ID)
	fmt.Fprintf(w, "Path:\t%s\n", item.AbsolutePath)
	fmt.Fprintf(w, "Category:\t%s\n", item.Category)
	if item.HasParent() {
		fmt.Fprintf(w, "Parent:\t#%d\n", item.ParentID)
		fmt.Fprintf(w, "Device:\t#%d\n", item.DeviceID)
	}
	if !item.IsFolder() {
		fmt.Fprintf(w, "Size:\t%s (%d bytes)\n", humanize.Bytes(uint64(item.Size)), item.Size)
	}
	fmt.Fprintf(w, "In recycle bin:\t%t\n", item.InRecycleBin)
	fmt.Fprintf(w, "Created:\t%s\n", cache.FormatTime(item.CreationTime))
	fmt.Fprintf(w, "Modified:\t%s\n", cache.FormatTime(item.LastModificationTime))
	fmt.Fprintf(w, "Uploaded:\t%s\n", cache.FormatTime(item.LastUploadTime))
	if item.URL != "" {
		fmt.Fprintf(w, "URL:\t%s\n", item.URL)
	}
	return w.Flush()
}

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <path>",
		Short: "Report whether a path exists and whether it is a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := fs.ParseRef(args[0])
			if err != nil {
				return err
			}
			return a.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
				ok, err := rt.Session.Exists(ctx, ref)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: not found\n", args[0])
					return nil
				}
				item, err := rt.Session.Resolve(ctx, ref)
				if err != nil {
					return err
				}
				kind := "file"
				if item.IsFolder() {
					kind = "folder"
				}
				if item.Category == remote.CategoryDevice {
					kind = "device"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s #%d\n", item.AbsolutePath, kind, item.ID)
				return nil
			})
		},
	}
}
