package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hindsight/internal/catalog"
	"hindsight/internal/ipc"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			recordings, err := fetchRecordings(ctx, cmd, limit)
			if err != nil {
				return err
			}
			if len(recordings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recordings saved")
				return nil
			}
			table := renderTable(
				[]string{"ID", "File", "Captured", "Window", "Duration", "Size"},
				buildRecordingRows(recordings),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of recordings to show (0 for all)")
	return cmd
}

func fetchRecordings(ctx *commandContext, cmd *cobra.Command, limit int) ([]ipc.Recording, error) {
	client, err := ipc.Dial(ctx.socketPath())
	if err == nil {
		defer client.Close()
		resp, err := client.Recordings(limit)
		if err != nil {
			return nil, err
		}
		return resp.Recordings, nil
	}
	if !daemonUnreachable(err) {
		return nil, wrapDialError(err, ctx.socketPath())
	}

	// Daemon down; read the catalog directly.
	cfg, cfgErr := ctx.ensureConfig()
	if cfgErr != nil {
		return nil, cfgErr
	}
	store, openErr := catalog.Open(cfg)
	if openErr != nil {
		return nil, openErr
	}
	defer store.Close()

	records, listErr := store.List(cmd.Context(), limit)
	if listErr != nil {
		return nil, listErr
	}
	recordings := make([]ipc.Recording, 0, len(records))
	for _, rec := range records {
		recordings = append(recordings, ipc.Recording{
			ID:              rec.ID,
			UUID:            rec.UUID,
			Filename:        rec.Filename,
			Path:            rec.Path,
			CreatedAt:       rec.CreatedAt,
			WindowSeconds:   rec.WindowSeconds,
			ChunkCount:      rec.ChunkCount,
			DurationSeconds: rec.DurationSeconds,
			SizeBytes:       rec.SizeBytes,
		})
	}
	return recordings, nil
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a saved recording and its catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid recording id %q", args[0])
			}

			stdout := cmd.OutOrStdout()
			client, dialErr := ipc.Dial(ctx.socketPath())
			if dialErr == nil {
				defer client.Close()
				resp, err := client.RemoveRecording(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Removed recording %d (%s)\n", resp.Removed.ID, resp.Removed.Filename)
				return nil
			}
			if !daemonUnreachable(dialErr) {
				return wrapDialError(dialErr, ctx.socketPath())
			}

			// Daemon down; operate on the catalog directly.
			cfg, cfgErr := ctx.ensureConfig()
			if cfgErr != nil {
				return cfgErr
			}
			store, openErr := catalog.Open(cfg)
			if openErr != nil {
				return openErr
			}
			defer store.Close()

			rec, getErr := store.GetByID(cmd.Context(), id)
			if getErr != nil {
				return getErr
			}
			if rec == nil {
				return fmt.Errorf("recording %d not found", id)
			}
			if _, err := store.Remove(cmd.Context(), id); err != nil {
				return err
			}
			if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove recording file: %w", err)
			}
			fmt.Fprintf(stdout, "Removed recording %d (%s)\n", rec.ID, rec.Filename)
			return nil
		},
	}
}
