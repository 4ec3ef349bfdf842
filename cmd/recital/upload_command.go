package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recital/internal/logging"
	"recital/internal/media"
	"recital/internal/transport"
	"recital/internal/uploads"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "upload <recording-id> <file>...",
		Short: "Upload recording media to the ingest service",
		Long: "Queues the given files for upload and waits for the queue to drain.\n" +
			"The media kind is inferred from the file extension unless --type is set.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			recordingID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || recordingID <= 0 {
				return fmt.Errorf("invalid recording id %q", args[0])
			}

			var forced media.Kind
			if kindFlag != "" {
				forced, err = media.ParseKind(kindFlag)
				if err != nil {
					return err
				}
			}

			logger := logging.NewNop()
			manager := uploads.NewManager(cfg, transport.NewClient(cfg, logger), logger)
			if err := manager.Start(cmd.Context()); err != nil {
				return err
			}
			defer manager.Stop()

			for _, path := range args[1:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				kind := forced
				if kind == "" {
					kind = inferKind(path)
				}
				if _, err := manager.Enqueue(recordingID, kind, data, filepath.Base(path)); err != nil {
					return err
				}
			}

			if err := manager.Drain(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			rows := make([][]string, 0, len(args)-1)
			for _, snap := range manager.Snapshot() {
				detail := snap.Error
				if snap.Status == uploads.StatusFailed {
					failed++
				}
				rows = append(rows, []string{
					strconv.FormatInt(snap.RecordingID, 10),
					kindLabel(snap.Kind),
					snap.Filename,
					humanize.Bytes(uint64(snap.Size)),
					string(snap.Status),
					detail,
				})
			}
			renderTable(out, []string{"Recording", "Kind", "File", "Size", "Status", "Detail"}, rows, 1, 4)

			if failed > 0 {
				return fmt.Errorf("%d upload(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "type", "t", "", "Media kind (audio or video); inferred from the extension when unset")
	return cmd
}

// inferKind maps a filename to its media kind by content type. Ambiguous or
// unknown extensions default to video, the common capture container.
func inferKind(path string) media.Kind {
	if strings.HasPrefix(media.ContentTypeForPath(path), "audio/") {
		return media.KindAudio
	}
	return media.KindVideo
}
