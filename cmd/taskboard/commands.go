package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/white6md/taskboard/internal/domain"
)

func newPathsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and database paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := resolvePaths(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", paths.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", paths.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.configPath)
			_, _ = fmt.Fprintf(out, "env: %s\n", paths.platform.EnvPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.platform.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.dbPath)
			return nil
		},
	}
}

func newExportCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cached board layout as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(flags, stderr, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			layout, err := sess.svc.LoadBoard(cmd.Context())
			if err != nil {
				return fmt.Errorf("load board: %w", err)
			}
			encoded, err := json.MarshalIndent(layout, "", "  ")
			if err != nil {
				return fmt.Errorf("encode export json: %w", err)
			}
			encoded = append(encoded, '\n')

			if strings.TrimSpace(outPath) == "" || outPath == "-" {
				if _, err := cmd.OutOrStdout().Write(encoded); err != nil {
					return fmt.Errorf("write export to stdout: %w", err)
				}
				return nil
			}
			if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			sess.logger.Info("board exported", "path", outPath, "project_id", layout.ProjectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path (- for stdout)")
	return cmd
}

func newImportCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the cached board layout from a JSON export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			content, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var layout domain.BoardLayout
			if err := json.Unmarshal(content, &layout); err != nil {
				return fmt.Errorf("decode import json: %w", err)
			}

			sess, err := openSession(flags, stderr, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.svc.ImportBoard(cmd.Context(), layout); err != nil {
				return fmt.Errorf("import board: %w", err)
			}
			sess.logger.Info("board imported", "path", inPath, "columns", len(layout.Columns))
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input JSON file path")
	return cmd
}

func newStatsCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print board totals, lane counts, and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(flags, stderr, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			snap, err := sess.svc.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("compute stats: %w", err)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "total: %d\n", snap.Total)
			_, _ = fmt.Fprintf(out, "done: %d\n", snap.Done)
			_, _ = fmt.Fprintf(out, "active: %d\n", snap.Active)
			_, _ = fmt.Fprintf(out, "progress: %d%%\n", snap.Percent)
			_, _ = fmt.Fprintf(out, "status: %s\n", snap.Chip.Text)
			for _, col := range snap.Columns {
				_, _ = fmt.Fprintf(out, "column %s: %d\n", col.Status, col.Count)
			}
			return nil
		},
	}
}

func newMoveCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Move one task to another column and persist it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := strings.TrimSpace(args[0])
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}

			sess, err := openSession(flags, stderr, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			res, changed, err := sess.svc.MoveTask(cmd.Context(), taskID, status)
			if err != nil {
				return fmt.Errorf("move task %s: %w", taskID, err)
			}
			out := cmd.OutOrStdout()
			if !changed {
				_, _ = fmt.Fprintf(out, "task %s is already in %s\n", taskID, status)
				return nil
			}
			sess.logger.Info("move resolved", "task_id", taskID, "to", status, "outcome", res.Outcome)
			if res.Outcome == domain.MoveOutcomeRolledBack {
				return fmt.Errorf("move task %s to %s: %w", taskID, status, res.Err)
			}
			_, _ = fmt.Fprintf(out, "moved %s from %s to %s\n", taskID, res.Attempt.From, res.Attempt.To)
			return nil
		},
	}
}

func newActivityCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent move outcomes from the local journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be > 0, got %d", limit)
			}
			sess, err := openSession(flags, stderr, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			events, err := sess.svc.ListMoveEvents(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list move events: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				_, _ = fmt.Fprintln(out, "no moves recorded")
				return nil
			}
			for _, event := range events {
				writeMoveEvent(out, event)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	return cmd
}

// writeMoveEvent prints one journal entry on a single line.
func writeMoveEvent(w io.Writer, event domain.MoveEvent) {
	line := fmt.Sprintf(
		"%s  %s  %s -> %s  %s",
		event.OccurredAt.UTC().Format(time.RFC3339),
		event.TaskID,
		event.FromStatus,
		event.ToStatus,
		event.Outcome,
	)
	if detail := strings.TrimSpace(event.Detail); detail != "" {
		line += "  " + detail
	}
	_, _ = fmt.Fprintln(w, line)
}
