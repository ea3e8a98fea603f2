package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hindsight/internal/ipc"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var last string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save the most recent buffered capture as a recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := parseWindow(last)
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Export(seconds)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				rec := resp.Recording
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (window %s, %d chunks, %s)\n",
					rec.Path,
					formatWindow(rec.WindowSeconds),
					rec.ChunkCount,
					formatSize(rec.SizeBytes),
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&last, "last", "", "Window to export, e.g. 30s or 2m (default from config)")
	return cmd
}

// parseWindow accepts Go duration strings and bare integer seconds.
// Empty input selects the configured default window (zero on the wire).
func parseWindow(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("window must be positive, got %d", seconds)
		}
		return seconds, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", value, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("window must be at least one second, got %s", d)
	}
	return int(d.Round(time.Second) / time.Second), nil
}
