package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cmd360/internal/device"
	"cmd360/internal/transfer"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var login loginFlags
	var long bool

	cmd := &cobra.Command{
		Use:   "list <host>",
		Short: "List the files stored on the Instant Replay",
		Long: `Print the remote listing one name per line, in server order.

A listing the device refuses prints whatever arrived before the refusal,
possibly nothing, and is not an error. --long adds the details the device's
LIST output provides; names it cannot parse are still shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			dc, err := login.deviceConfig(cmd, cfg, args[0], logger)
			if err != nil {
				return err
			}
			runner := ctx.newRunner(cmd, cfg, logger)
			entries, err := runner.List(runCtx, transfer.ListRequest{Device: dc, Long: long})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if long {
				if len(entries) > 0 {
					fmt.Fprintln(out, renderListing(entries))
				}
				return nil
			}
			for _, entry := range entries {
				fmt.Fprintln(out, entry.Name)
			}
			return nil
		},
	}

	login.bind(cmd)
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show type, size, and modification time")
	return cmd
}

func renderListing(entries []device.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		modified := ""
		if !e.Modified.IsZero() {
			modified = e.Modified.Format("2006-01-02 15:04")
		}
		size := ""
		if e.Kind != "" {
			size = strconv.FormatUint(e.Size, 10)
		}
		rows = append(rows, []string{e.Name, e.Kind, size, modified})
	}
	return renderTable([]column{
		{title: "Name"},
		{title: "Type"},
		{title: "Size", numeric: true},
		{title: "Modified"},
	}, rows)
}
