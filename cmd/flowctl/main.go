// File: cmd/flowctl/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Command flowctl runs a topology in-process for a fixed interval and
// dumps its query_json_stats/to_dot_markup output (§4.6, §6) — the
// simplest idiomatic external driver for those operations that doesn't
// smuggle in a remote-proxy RPC server or a graph-editor UI, both
// explicit non-goals.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/momentics/flowcore/core/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "Inspect a flowcore dataflow topology",
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Run the demo topology and print query_json_stats output",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndReport(configPath, func(r *demoRun) error {
			out, err := r.topo.QueryJSONStats()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		})
	},
}

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Run the demo topology and print to_dot_markup output",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAndReport(configPath, func(r *demoRun) error {
			out, err := r.topo.ToDotMarkup()
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a scheduler deployment YAML file (optional)")
	rootCmd.AddCommand(statsCmd, dotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// runAndReport loads deployment config (if any), starts the demo
// topology, lets it run long enough to produce observable state, then
// invokes report before shutting everything down.
func runAndReport(path string, report func(*demoRun) error) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	schedCfg, err := loadSchedulerConfig(path, logger)
	if err != nil {
		return err
	}

	run, err := startDemo(schedCfg, logger)
	if err != nil {
		return fmt.Errorf("start demo topology: %w", err)
	}
	defer run.shutdown()

	time.Sleep(50 * time.Millisecond)
	return report(run)
}

func loadSchedulerConfig(path string, logger *zap.Logger) (schedulerConfigFields, error) {
	if path == "" {
		return schedulerConfigFields{}, nil
	}
	dep, err := config.LoadDeploymentFile(path)
	if err != nil {
		return schedulerConfigFields{}, fmt.Errorf("load deployment config: %w", err)
	}
	cfg, err := dep.SchedulerConfig()
	if err != nil {
		return schedulerConfigFields{}, fmt.Errorf("resolve scheduler config: %w", err)
	}
	logger.Info("loaded deployment config", zap.String("topology", dep.Topology), zap.String("path", path))
	return schedulerConfigFields{cfg: cfg, set: true}, nil
}
