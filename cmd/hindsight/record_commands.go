package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hindsight/internal/daemonctl"
	"hindsight/internal/ipc"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the rolling recording session",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureRunning(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StartRecording()
				if err != nil {
					return err
				}
				if !resp.Started {
					if strings.TrimSpace(resp.Message) != "" {
						fmt.Fprintln(stdout, resp.Message)
						return nil
					}
					fmt.Fprintln(stdout, "Recording not started")
					return nil
				}
				fmt.Fprintln(stdout, "Recording started")
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the rolling recording session",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ipc.Dial(ctx.socketPath())
			if err != nil {
				if daemonUnreachable(err) {
					fmt.Fprintln(stdout, "Daemon is not running; nothing to stop")
					return nil
				}
				return wrapDialError(err, ctx.socketPath())
			}
			defer client.Close()

			if _, err := client.StopRecording(); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Recording stopped")
			return nil
		},
	}
}
