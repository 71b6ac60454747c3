package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"text/tabwriter"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/morenoc/imagemill/internal/imagegen"
	"github.com/morenoc/imagemill/internal/protocol"
)

// TODO: Inject version at build time.
const version = "0.1.0"

type config struct {
	serverHost string
	serverPort string
}

type cli struct {
	conn *websocket.Conn
}

func newCLI() *cli {
	return &cli{}
}

func (c *cli) rootCmd() *cobra.Command {
	cfg := &config{}

	command := &cobra.Command{
		Use:          "millctl",
		Short:        "CLI for interacting with a millserver",
		Version:      version,
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.conn == nil {
				return nil
			}

			return c.conn.Close()
		},
	}

	command.AddCommand(
		c.startCmd(cfg),
		c.stopCmd(cfg),
		c.statusCmd(cfg),
		c.pingCmd(cfg),
		c.watchCmd(cfg),
		genImagesCmd(),
	)

	command.CompletionOptions.HiddenDefaultCmd = true

	command.PersistentFlags().StringVar(
		&cfg.serverHost,
		"server-host",
		"localhost",
		"Server hostname",
	)

	command.PersistentFlags().StringVar(
		&cfg.serverPort,
		"server-port",
		"8765",
		"Server port",
	)

	return command
}

// dial opens the websocket session used by the subcommands that talk to the
// server. The generator subcommand runs fully offline and never dials.
func (c *cli) dial(cfg *config) error {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(cfg.serverHost, cfg.serverPort),
		Path:   "/ws",
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}

	c.conn = conn

	return nil
}

func (c *cli) send(action string, data protocol.CommandData) error {
	return c.conn.WriteJSON(protocol.Command{Action: action, Data: data})
}

func (c *cli) readEvent() (protocol.ServerEnvelope, error) {
	var env protocol.ServerEnvelope

	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return env, err
	}

	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}

	return env, nil
}

func (c *cli) startCmd(cfg *config) *cobra.Command {
	var workers int
	var ops opsValue

	command := &cobra.Command{
		Use:     "start [flags]",
		Short:   "Start processing a batch of images",
		Example: "  millctl start --workers 4 --op blur --op resize=800x600",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.dial(cfg); err != nil {
				return err
			}

			if err := c.send(protocol.ActionStart, protocol.CommandData{
				Operations: ops.specs,
				NumWorkers: workers,
			}); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "start requested")

			return nil
		},
	}

	command.Flags().IntVar(&workers, "workers", 0, "Worker count (default: all cores)")
	command.Flags().Var(&ops, "op", "Operation to apply, repeatable (default: blur, grayscale, resize)")

	return command
}

func (c *cli) stopCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Cancel the batch in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.dial(cfg); err != nil {
				return err
			}

			if err := c.send(protocol.ActionStop, protocol.CommandData{}); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "stop requested")

			return nil
		},
	}
}

func (c *cli) statusCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query the server state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.dial(cfg); err != nil {
				return err
			}

			if err := c.send(protocol.ActionGetStatus, protocol.CommandData{}); err != nil {
				return err
			}

			for {
				env, err := c.readEvent()
				if err != nil {
					return err
				}

				if env.Type != protocol.TypeStatus {
					continue
				}

				var status protocol.Status
				if err := json.Unmarshal(env.Data, &status); err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

				fmt.Fprintf(w, "STATE\tPROGRESS\tWORKERS\tCORES\tIMAGING\tTELEMETRY\t\n")
				fmt.Fprintf(
					w,
					"%s\t%d/%d\t%d\t%d\t%t\t%t\t\n",
					status.State,
					status.Current,
					status.Total,
					status.Workers,
					status.CPUCount,
					status.Imaging,
					status.Telemetry,
				)

				return w.Flush()
			}
		},
	}
}

func (c *cli) pingCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check server liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.dial(cfg); err != nil {
				return err
			}

			if err := c.send(protocol.ActionPing, protocol.CommandData{}); err != nil {
				return err
			}

			for {
				env, err := c.readEvent()
				if err != nil {
					return err
				}

				if env.Type == protocol.TypePong {
					fmt.Fprintln(cmd.OutOrStdout(), "pong")
					return nil
				}
			}
		},
	}
}

func (c *cli) watchCmd(cfg *config) *cobra.Command {
	var stats bool

	command := &cobra.Command{
		Use:   "watch",
		Short: "Stream server events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.dial(cfg); err != nil {
				return err
			}

			// Unblock the blocking read when the context is cancelled.
			stop := context.AfterFunc(cmd.Context(), func() {
				c.conn.Close()
			})
			defer stop()

			for {
				env, err := c.readEvent()
				if err != nil {
					if cmd.Context().Err() != nil ||
						websocket.IsCloseError(err, websocket.CloseNormalClosure) ||
						errors.Is(err, net.ErrClosed) {
						return nil
					}

					return err
				}

				if env.Type == protocol.TypeCPUStats && !stats {
					continue
				}

				printEvent(cmd, env)
			}
		},
	}

	command.Flags().BoolVar(&stats, "stats", false, "Include cpu_stats telemetry events")

	return command
}

func genImagesCmd() *cobra.Command {
	var dir string
	var count int
	var seed int64

	command := &cobra.Command{
		Use:     "genimages",
		Short:   "Generate sample images to process",
		Example: "  millctl genimages --dir ./input_images --count 10",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := imagegen.Generate(dir, count, seed)
			if err != nil {
				return err
			}

			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}

			return nil
		},
	}

	command.Flags().StringVar(&dir, "dir", "input_images", "Directory to write images into")
	command.Flags().IntVar(&count, "count", 10, "Number of images to generate")
	command.Flags().Int64Var(&seed, "seed", 42, "Seed for the noise pattern")

	return command
}

// printEvent renders one server event as a human-readable line.
func printEvent(cmd *cobra.Command, env protocol.ServerEnvelope) {
	out := cmd.OutOrStdout()

	switch env.Type {
	case protocol.TypeLog:
		var entry protocol.LogEntry
		if json.Unmarshal(env.Data, &entry) != nil {
			return
		}
		fmt.Fprintf(out, "[%s] %-7s %s\n", entry.Timestamp, entry.Level, entry.Message)

	case protocol.TypeStatus:
		var status protocol.Status
		if json.Unmarshal(env.Data, &status) != nil {
			return
		}
		fmt.Fprintf(
			out,
			"status: %s %d/%d (workers: %d)\n",
			status.State, status.Current, status.Total, status.Workers,
		)

	case protocol.TypeProgress:
		var progress protocol.Progress
		if json.Unmarshal(env.Data, &progress) != nil {
			return
		}
		fmt.Fprintf(
			out,
			"progress: %d/%d (%d%%) %s\n",
			progress.Current, progress.Total, progress.Percentage, progress.File,
		)

	case protocol.TypeResult:
		var result protocol.TaskResult
		if json.Unmarshal(env.Data, &result) != nil {
			return
		}
		fmt.Fprintf(
			out,
			"result: %s in %.3fs (%.0fKB -> %.0fKB, %s)\n",
			result.File, result.Time, result.SizeBeforeKB, result.SizeAfterKB, result.Proceso,
		)

	case protocol.TypeMetrics:
		var metrics protocol.BatchMetrics
		if json.Unmarshal(env.Data, &metrics) != nil {
			return
		}
		fmt.Fprintf(
			out,
			"metrics: %.2fx speedup, %.1f%% efficiency, %d ok, %d failed, %.2fs total\n",
			metrics.Speedup,
			metrics.Efficiency,
			metrics.Successful,
			metrics.Failed,
			metrics.TotalTime,
		)

	case protocol.TypeCPUStats:
		var cpuStats protocol.CPUStats
		if json.Unmarshal(env.Data, &cpuStats) != nil {
			return
		}
		fmt.Fprintf(
			out,
			"cpu: %.1f%% | ram: %.2f/%.2fGB (%.1f%%)\n",
			cpuStats.Total, cpuStats.RAMUsedGB, cpuStats.RAMTotalGB, cpuStats.RAMPercent,
		)

	case protocol.TypePong:
		fmt.Fprintln(out, "pong")
	}
}
