// Package main provides an offline tool for evaluating strategies against recorded snapshots.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/hoop-signals/internal/logger"
	"github.com/yourusername/hoop-signals/internal/models"
	sig "github.com/yourusername/hoop-signals/internal/signal"
	"github.com/yourusername/hoop-signals/internal/strategy"
)

// Build information - set via ldflags
var Version = "dev"

var (
	logLevel      string
	strategyFile  string
	snapshotFile  string
	statsFile     string
	signalFile    string
	defaultExpiry string
	appLog        *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:     "signal-eval",
	Short:   "Evaluate signal strategies against recorded game snapshots",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		appLog = logger.New(logger.Options{Level: logLevel, Output: os.Stderr})
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List condition fields, or resolve them against a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotFile == "" {
			for _, f := range strategy.KnownFields() {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		}
		ec, err := loadContext()
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ec.Fields())
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Check a strategy's rules against a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		compiled, err := loadStrategy()
		if err != nil {
			return err
		}
		ec, err := loadContext()
		if err != nil {
			return err
		}
		gate := strategy.PassesRules(compiled.Rules, ec)
		out := map[string]any{"passed": gate.Passed}
		if gate.FailedRule != nil {
			out["failed_rule"] = gate.FailedRule.String()
			out["reason"] = gate.Reason
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Evaluate a strategy's triggers against a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		compiled, err := loadStrategy()
		if err != nil {
			return err
		}
		ec, err := loadContext()
		if err != nil {
			return err
		}

		type conditionOut struct {
			Condition string `json:"condition"`
			Actual    any    `json:"actual,omitempty"`
			Matched   bool   `json:"matched"`
		}
		type triggerOut struct {
			ID         uuid.UUID      `json:"id"`
			Role       string         `json:"role"`
			Fired      bool           `json:"fired"`
			Conditions []conditionOut `json:"conditions"`
		}

		var out []triggerOut
		report := func(triggers []*strategy.Trigger) {
			for _, t := range triggers {
				res := t.Evaluate(ec)
				to := triggerOut{ID: res.TriggerID, Role: string(res.Role), Fired: res.Fired}
				for _, c := range append(res.Matched, res.Failed...) {
					co := conditionOut{Condition: c.Condition.String(), Matched: c.Matched}
					if c.Found {
						co.Actual = c.Actual.Interface()
					}
					to.Conditions = append(to.Conditions, co)
				}
				out = append(out, to)
			}
		}
		report(compiled.EntryTriggers)
		report(compiled.CloseTriggers)
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

var outcomeCmd = &cobra.Command{
	Use:   "outcome",
	Short: "Score a bet-taken signal against a final snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		compiled, err := loadStrategy()
		if err != nil {
			return err
		}
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		var signal models.Signal
		if err := readJSON(signalFile, &signal); err != nil {
			return err
		}

		result, err := strategy.EvaluateOutcome(&signal, snap, compiled.WinRequirements)
		if err != nil {
			return err
		}
		reqs := make([]map[string]any, 0, len(result.Requirements))
		for _, r := range result.Requirements {
			reqs = append(reqs, map[string]any{"requirement": r.Requirement.String(), "passed": r.Passed, "reason": r.Reason})
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"outcome":      result.Outcome,
			"final":        result.Final,
			"summary":      result.Summary,
			"requirements": reqs,
		})
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a sequence of snapshots through the signal lifecycle",
	Long:  `Reads a JSON array of snapshots for one game and prints every signal transition the strategy produces, including final scoring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		compiled, err := loadStrategy()
		if err != nil {
			return err
		}
		var snaps []*models.GameSnapshot
		if err := readJSON(snapshotFile, &snaps); err != nil {
			return err
		}

		machine := sig.NewMachine(sig.NewStore())
		var transitions []sig.Transition
		for i, snap := range snaps {
			if snap.IsFinal() {
				ts, err := machine.Resolve(snap, map[uuid.UUID]*strategy.Compiled{compiled.ID: compiled})
				if err != nil {
					return fmt.Errorf("snapshot %d: %w", i, err)
				}
				transitions = append(transitions, ts...)
				break
			}
			eval, err := machine.Evaluate(compiled, strategy.BuildContext(snap, nil))
			if err != nil {
				return fmt.Errorf("snapshot %d: %w", i, err)
			}
			if !eval.Gate.Passed {
				appLog.WithFields(logrus.Fields{"snapshot": i, "reason": eval.Gate.Reason}).Debug("Rules blocked evaluation")
			}
			transitions = append(transitions, eval.Transitions...)
		}

		out := make([]map[string]any, 0, len(transitions))
		for _, t := range transitions {
			out = append(out, map[string]any{
				"from":   t.From,
				"to":     t.To,
				"reason": t.Reason,
				"signal": t.Signal,
			})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")
	rootCmd.PersistentFlags().StringVarP(&strategyFile, "strategy", "s", "", "Strategy JSON file")
	rootCmd.PersistentFlags().StringVarP(&snapshotFile, "snapshot", "g", "", "Game snapshot JSON file")
	rootCmd.PersistentFlags().StringVar(&statsFile, "stats", "", "Player stats JSON file")
	rootCmd.PersistentFlags().StringVar(&defaultExpiry, "default-expiry", models.DefaultExpiryClock, "Expiry clock for strategies that do not set one")
	outcomeCmd.Flags().StringVar(&signalFile, "signal", "", "Signal JSON file")

	for _, c := range []*cobra.Command{rulesCmd, triggerCmd, outcomeCmd, replayCmd} {
		_ = c.MarkFlagRequired("strategy")
	}
	for _, c := range []*cobra.Command{rulesCmd, triggerCmd, outcomeCmd, replayCmd} {
		_ = c.MarkFlagRequired("snapshot")
	}
	_ = outcomeCmd.MarkFlagRequired("signal")

	rootCmd.AddCommand(fieldsCmd, rulesCmd, triggerCmd, outcomeCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadStrategy() (*strategy.Compiled, error) {
	var rec models.Strategy
	if err := readJSON(strategyFile, &rec); err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.ExpiryClock == "" {
		rec.ExpiryClock = defaultExpiry
	}
	// offline evaluation ignores the catalog's active flag
	rec.Active = true

	compiled := strategy.Compile(&rec)
	for _, w := range compiled.Warnings {
		appLog.WithField("strategy", rec.Name).Warn(w)
	}
	if compiled.Inert() {
		return nil, fmt.Errorf("strategy %q is inert and cannot be evaluated", rec.Name)
	}
	return compiled, nil
}

func loadSnapshot() (*models.GameSnapshot, error) {
	var snap models.GameSnapshot
	if err := readJSON(snapshotFile, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func loadContext() (*strategy.EvaluationContext, error) {
	snap, err := loadSnapshot()
	if err != nil {
		return nil, err
	}
	var stats []models.PlayerStat
	if statsFile != "" {
		if err := readJSON(statsFile, &stats); err != nil {
			return nil, err
		}
	}
	return strategy.BuildContext(snap, stats), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
