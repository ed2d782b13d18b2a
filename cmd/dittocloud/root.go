package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/config"
	"github.com/marmos91/dittocloud/pkg/fs"
	"github.com/spf13/cobra"
)

// skipConfig marks commands that run without loading the configuration.
const skipConfig = "skip-config"

type app struct {
	configPath string
	logLevel   string
	verbose    int

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dittocloud",
		Short: "Browse and synchronize a remote item store",
		Long: `dittocloud maps a remote item store (devices, folders, files and recycle
bins addressed by numeric IDs) onto absolute paths, and copies trees between
it and the local filesystem.

Paths are absolute (/Laptop/Documents) or relative to the current directory
kept between invocations. An item can also be named by ID with #<id>.`,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (default \"$XDG_CONFIG_HOME/dittocloud/config.yaml\")")
	flags.StringVar(&a.logLevel, "log-level", "", "override logging.level (DEBUG, INFO, WARN, ERROR)")
	flags.CountVarP(&a.verbose, "verbose", "v", "report each transfer (-v) and each skip (-vv)")

	root.AddCommand(
		newLsCmd(a),
		newTreeCmd(a),
		newPwdCmd(a),
		newCdCmd(a),
		newMkdirCmd(a),
		newMvCmd(a),
		newRmCmd(a),
		newPropsCmd(a),
		newPathCmd(a),
		newPutCmd(a),
		newGetCmd(a),
		newScheduleCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if _, ok := cmd.Annotations[skipConfig]; ok {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(a.logLevel)
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

// withRuntime runs fn against a freshly opened runtime and closes it
// afterwards, which persists the remote snapshot.
func (a *app) withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *config.Runtime) error) (err error) {
	ctx := cmd.Context()

	rt, err := config.InitializeRuntime(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
		_ = logger.Sync()
	}()

	return fn(ctx, rt)
}

// refArg parses args[i], or returns the current directory when absent.
func refArg(args []string, i int) (fs.PathRef, error) {
	if i >= len(args) {
		return fs.Current(), nil
	}
	return fs.ParseRef(args[i])
}
