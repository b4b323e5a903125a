// Command pipecheck runs an end-to-end verification of a streaming
// transform pipeline described by a config file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pipecheck/pipecheck"
	"github.com/pipecheck/pipecheck/internal/build"
	"github.com/pipecheck/pipecheck/internal/config"
	"github.com/pipecheck/pipecheck/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pipecheck",
		Short:         "End-to-end verification harness for streaming transform pipelines",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(newRunCommand())
	return cmd
}

func newRunCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a verification against a live cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logging.New(logging.Options(cfg.Log))

			streams, scripts, err := cfg.Topology()
			if err != nil {
				return err
			}

			opts := []pipecheck.Option{
				pipecheck.WithBrokers(cfg.Brokers),
				pipecheck.WithLog(log),
				pipecheck.WithTimeout(cfg.Timeout),
				pipecheck.WithBackoff(cfg.Backoff),
				pipecheck.WithJoinTimeout(cfg.JoinTimeout),
				pipecheck.WithFanOut(cfg.FanOut),
				pipecheck.WithDeployLabel(cfg.DeployLabel),
			}
			if cfg.Build.WorkDir != "" {
				tool := build.NewTool(cfg.Build.WorkDir, cfg.Build.TemplateDir, cfg.Build.Command, log)
				deployer := &build.RPKDeployer{Bin: cfg.Build.RPKBin, Brokers: cfg.Brokers}
				opts = append(opts, pipecheck.WithBuildTool(tool, deployer))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			driver := pipecheck.NewDriver(streams, scripts, opts...)
			result, err := driver.Run(ctx)

			var timeout *pipecheck.TimeoutError
			switch {
			case errors.As(err, &timeout):
				fmt.Fprintf(cmd.ErrOrStderr(), "TIMED_OUT: %v\n", timeout)
				return err
			case err != nil:
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"COMPLETED: %d/%d input records, %d/%d output records\n",
				result.Inputs.NumRecords(), result.Expected.Inputs,
				result.Outputs.NumRecords(), result.Expected.Outputs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "pipecheck.yml", "path to the harness config file")
	return cmd
}
