package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cmd360/internal/deps"
	"cmd360/internal/device"
	"cmd360/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var login loginFlags
	var host string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check external tools, local directories, and optionally a device login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.session(cmd)
			if err != nil {
				return err
			}

			var dc device.Config
			if host != "" {
				dc, err = login.deviceConfig(cmd, cfg, host, logger)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(runCtx, cfg)
			writeSection(out, "Dependencies", colorize)
			fmt.Fprintln(out, renderDependencyTable(statuses))

			results := preflight.RunAll(runCtx, cfg, preflight.Options{Device: dc, Dialer: ctx.dialer})
			fmt.Fprintln(out)
			writeSection(out, "Checks", colorize)
			for _, r := range results {
				fmt.Fprintln(out, renderCheck(r, colorize))
			}

			if len(deps.MissingRequired(statuses)) > 0 || preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	login.bind(cmd)
	cmd.Flags().StringVar(&host, "host", "", "Also log in to this device and request a listing")
	return cmd
}

func renderDependencyTable(statuses []deps.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "available"
		if !s.Available {
			state = "missing"
			if s.Detail != "" {
				state += ": " + s.Detail
			}
		}
		rows = append(rows, []string{s.Name, s.Command, s.Version, yesNo(!s.Optional), state})
	}
	return renderTable([]column{
		{title: "Tool"},
		{title: "Command"},
		{title: "Version"},
		{title: "Required"},
		{title: "Status"},
	}, rows)
}
