package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/taskpilot/config"
	"github.com/mohammad-safakhou/taskpilot/internal/agent/core"
	srv "github.com/mohammad-safakhou/taskpilot/internal/server"
)

func main() {
	var cfgPath string
	var root = &cobra.Command{Use: "taskpilot"}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (optional)")

	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	var maxRetries int
	var run = &cobra.Command{
		Use:   "run <task...>",
		Short: "Run a single task and print the report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if maxRetries >= 0 {
				cfg.Agents.MaxRetries = maxRetries
			}
			return runTask(cfg, strings.Join(args, " "))
		},
	}
	run.Flags().IntVar(&maxRetries, "max-retries", -1, "retry rounds (overrides config)")

	root.AddCommand(serve, run)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTask(cfg *config.Config, task string) error {
	orch, err := core.NewOrchestrator(cfg, log.New(os.Stderr, "[ORCH] ", log.LstdFlags))
	if err != nil {
		return err
	}

	orch.OnPlan(func(plan core.Plan) {
		fmt.Printf("Plan: %d steps\n", len(plan.Steps))
	})
	orch.OnStepProgress(func(result core.StepResult, total int) {
		status := "ok"
		if !result.Success {
			status = "failed"
		}
		fmt.Printf("[%d/%d] %s ... %s\n", result.Step, total, result.Tool, status)
	})

	report, err := orch.RunTask(context.Background(), task, cfg.Agents.MaxRetries)
	if err != nil {
		if err == core.ErrEmptyPlan {
			fmt.Println("Could not derive an actionable plan from the task.")
			for _, s := range core.PlanningSuggestions {
				fmt.Printf("  - %s\n", s)
			}
			return nil
		}
		return err
	}

	final := report.Verification.FinalOutput
	fmt.Printf("\nSummary: %s\n", final.Summary)
	fmt.Printf("Steps: %d total, %d succeeded, %d failed (retry rounds: %d)\n",
		final.TotalSteps, final.SuccessfulSteps, final.FailedSteps, report.RetryRounds)
	for _, issue := range final.Issues {
		fmt.Printf("Issue: %s\n", issue)
	}
	if len(final.Data) > 0 {
		pretty, err := json.MarshalIndent(final.Data, "", "  ")
		if err == nil {
			fmt.Printf("\nData:\n%s\n", pretty)
		}
	}
	return nil
}
