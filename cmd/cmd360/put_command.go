package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cmd360/internal/transfer"
)

func newPutCommand(ctx *commandContext) *cobra.Command {
	var login loginFlags
	var summary bool

	cmd := &cobra.Command{
		Use:   "put <host> <files...>",
		Short: "Send files to the Instant Replay after conversion",
		Long: `Convert each file to a 2-channel 44.1 kHz WAV with loudness normalization
and upload it under its upper-cased name (song.mp3 becomes SONG.WAV).

Pass "." to send every regular file in the working directory. Files ending
in an excluded extension (.pk and .xmp by default) are skipped. Extensions
match regardless of case, so NOTES.PK is skipped too.`,
		Args: cobra.MinimumNArgs(2),
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
			result, putErr := runner.Put(runCtx, transfer.PutRequest{
				Device:   dc,
				Files:    args[1:],
				TempRoot: cfg.Paths.TempDir,
				Excluded: cfg.Put.ExcludedExtensions,
			})
			if summary && len(result.Files) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderPutSummary(result))
			}
			return putErr
		},
	}

	login.bind(cmd)
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a table of every processed file")
	return cmd
}

func renderPutSummary(result transfer.PutResult) string {
	rows := make([][]string, 0, len(result.Files))
	for _, f := range result.Files {
		size := ""
		if f.Bytes > 0 {
			size = humanBytes(f.Bytes)
		}
		rows = append(rows, []string{filepath.Base(f.Source), f.Remote, string(f.Outcome), size})
	}
	return renderTable([]column{
		{title: "Source"},
		{title: "Remote"},
		{title: "Outcome"},
		{title: "Size", numeric: true},
	}, rows)
}
