package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittocloud/pkg/schedule"
	"github.com/spf13/cobra"
)

func newScheduleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Show the transfer windows and when they next open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := a.cfg.Schedule.Build()
			if err != nil {
				return err
			}
			gate := schedule.NewGate(sched, nil)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range []string{schedule.Upload, schedule.Download} {
				window, err := sched.Window(name)
				if err != nil {
					return err
				}
				open, err := gate.Open(name)
				if err != nil {
					return err
				}
				status := "open"
				if !open {
					next, err := gate.Next(name)
					if err != nil {
						return err
					}
					status = "opens " + humanize.RelTime(next, time.Now(), "ago", "from now") +
						" (" + next.Format("2006-01-02 15:04:05") + ")"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, window, status)
			}
			return w.Flush()
		},
	}
}
