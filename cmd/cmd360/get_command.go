package main

import (
	"github.com/spf13/cobra"

	"cmd360/internal/transfer"
)

func newGetCommand(ctx *commandContext) *cobra.Command {
	var login loginFlags

	cmd := &cobra.Command{
		Use:   "get <host> <file_name>",
		Short: "Retrieve a file from the Instant Replay",
		Long:  "Download file_name into the dump directory (./dump unless configured otherwise).",
		Args:  cobra.ExactArgs(2),
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
			_, err = runner.Get(runCtx, transfer.GetRequest{
				Device:  dc,
				Name:    args[1],
				DumpDir: cfg.Paths.DumpDir,
			})
			return err
		},
	}

	login.bind(cmd)
	return cmd
}
