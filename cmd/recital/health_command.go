package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the ingest service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := writerIsTerminal(out)
			endpoint := strings.TrimRight(cfg.Upload.IngestURL, "/") + "/api/health"

			client := &http.Client{Timeout: 5 * time.Second}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Ingest API", statusError, "unreachable: "+err.Error(), colorize))
				return fmt.Errorf("ingest service unreachable at %s", endpoint)
			}
			defer resp.Body.Close()

			var body struct {
				Status  string `json:"status"`
				Service string `json:"service"`
				Version string `json:"version"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode health response: %w", err)
			}
			if resp.StatusCode != http.StatusOK || body.Status != "healthy" {
				fmt.Fprintln(out, renderStatusLine("Ingest API", statusError, body.Status, colorize))
				return fmt.Errorf("ingest service unhealthy (status %d)", resp.StatusCode)
			}

			fmt.Fprintln(out, renderStatusLine("Ingest API", statusOK, fmt.Sprintf("%s %s", body.Service, body.Version), colorize))
			return nil
		},
	}
}
