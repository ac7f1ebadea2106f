package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hotseat/internal/bootstrap"
	"hotseat/internal/domain"
	"hotseat/internal/usecase"
)

var reportCmd = &cobra.Command{
	Use:   "report <recording.json>",
	Short: "Generate a coaching report from a saved recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := loadRecording(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sink := newTerminalSink(cmd.OutOrStdout(), defaultStyles())
		services, err := bootstrap.BuildWithConfig(cmd.Context(), cfg, sink, nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), reportTimeout)
		defer cancel()
		result, err := services.Reports.Finalize(ctx, rec)
		if err != nil {
			return err
		}
		sink.Report(result)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <recording.json>",
	Short: "Check that a saved recording replays to its transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := loadRecording(args[0])
		if err != nil {
			return err
		}
		if !usecase.VerifyRecording(rec) {
			return fmt.Errorf("recording %s does not replay to its transcript", rec.SessionID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recording %s verified: %d events, %d turns\n", rec.SessionID, len(rec.Events), len(rec.Turns))
		return nil
	},
}

func saveRecording(path string, rec domain.Recording) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write recording %s: %w", path, err)
	}
	return nil
}

func loadRecording(path string) (domain.Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Recording{}, fmt.Errorf("failed to read recording %s: %w", path, err)
	}
	var rec domain.Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Recording{}, fmt.Errorf("failed to parse recording %s: %w", path, err)
	}
	return rec, nil
}
