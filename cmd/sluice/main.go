package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sluice-dev/sluice/internal/cmd/pipe"
	cfgpkg "github.com/sluice-dev/sluice/internal/config"
	logpkg "github.com/sluice-dev/sluice/pkg/log"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "sluice",
		Short: "Sluice flow-control CLI",
		Long:  "Sluice regulates how and when work executes under load. This CLI runs line pipelines through the queuing engine.",
	}

	pipeCmd := &cobra.Command{
		Use:   "pipe",
		Short: "Feed stdin lines through the async queuer",
		RunE: func(cmd *cobra.Command, args []string) error {
			profilePath, _ := cmd.Flags().GetString("profile")
			prof, err := cfgpkg.Load(profilePath)
			if err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			cfgpkg.FromEnv(&prof)

			// Flags win over profile and env.
			flags := cmd.Flags()
			if flags.Changed("max-size") {
				prof.MaxSize, _ = flags.GetInt("max-size")
			}
			if flags.Changed("concurrency") {
				prof.Concurrency, _ = flags.GetInt("concurrency")
			}
			if flags.Changed("wait") {
				d, _ := flags.GetDuration("wait")
				prof.Wait = cfgpkg.Duration(d)
			}
			if flags.Changed("expiration") {
				d, _ := flags.GetDuration("expiration")
				prof.Expiration = cfgpkg.Duration(d)
			}
			if flags.Changed("dedup") {
				prof.Dedup, _ = flags.GetBool("dedup")
			}
			if flags.Changed("rate") {
				prof.Rate, _ = flags.GetFloat64("rate")
			}
			if flags.Changed("filter") {
				prof.Filter, _ = flags.GetString("filter")
			}
			if flags.Changed("log-level") {
				prof.LogLevel, _ = flags.GetString("log-level")
			}
			if flags.Changed("log-format") {
				prof.LogFormat, _ = flags.GetString("log-format")
			}

			logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: prof.LogLevel, Format: prof.LogFormat})
			if err != nil {
				return err
			}
			logpkg.RedirectStdLog(logger)

			metricsAddr, _ := flags.GetString("metrics")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return pipe.Run(ctx, pipe.Options{
				Profile:     prof,
				MetricsAddr: metricsAddr,
				In:          os.Stdin,
				Out:         os.Stdout,
				Logger:      logger,
			})
		},
	}
	pipeCmd.Flags().String("profile", "", "Profile file (JSON or YAML)")
	pipeCmd.Flags().Int("max-size", 0, "Queue capacity; 0 means unbounded")
	pipeCmd.Flags().Int("concurrency", 1, "In-flight worker ceiling")
	pipeCmd.Flags().Duration("wait", 0, "Delay between scheduler ticks")
	pipeCmd.Flags().Duration("expiration", 0, "Drop items older than this; 0 disables")
	pipeCmd.Flags().Bool("dedup", false, "Deduplicate identical lines")
	pipeCmd.Flags().Float64("rate", 0, "Intake limit in lines per second; 0 disables")
	pipeCmd.Flags().String("filter", "", "CEL expression over {text, size, line_no, now_ms}")
	pipeCmd.Flags().String("metrics", "", "Serve prometheus metrics on this address, e.g. :9090")
	pipeCmd.Flags().String("log-level", os.Getenv("SLUICE_LOG_LEVEL"), "Log level: debug|info|warn|error")
	pipeCmd.Flags().String("log-format", os.Getenv("SLUICE_LOG_FORMAT"), "Log format: text|json")
	rootCmd.AddCommand(pipeCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("sluice", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
