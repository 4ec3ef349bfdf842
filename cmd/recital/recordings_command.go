package main

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"recital/internal/listing"
	"recital/internal/logging"
	"recital/internal/media"
)

var titleCaser = cases.Title(language.Und)

func kindLabel(kind media.Kind) string {
	return titleCaser.String(kind.String())
}

func newRecordingsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recordings",
		Short: "List stored recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			cache := listing.NewCache(cfg, logging.NewNop())
			rows, err := cache.Recordings(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				cmd.Println("No recordings stored.")
				return nil
			}

			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				tableRows = append(tableRows, []string{
					strconv.FormatInt(row.RecordingID, 10),
					titleCaser.String(row.MediaKind),
					row.Filename,
					humanize.Bytes(uint64(row.SizeBytes)),
					row.UploadedAt,
				})
			}
			renderTable(out, []string{"Recording", "Kind", "File", "Size", "Uploaded"}, tableRows, 1, 4)
			return nil
		},
	}
}
