package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hotseat/internal/bootstrap"
	"hotseat/internal/domain"
)

const reportTimeout = 2 * time.Minute

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a live mock interview",
	Long: `Run a live mock interview.

The interviewer speaks through the configured output device and listens on
the configured input device. Press Ctrl-C to end the interview.

Examples:
  hotseat interview --resume resume.txt --jd job.txt
  hotseat interview --resume resume.txt --jd job.txt --save session.json --report`,
	RunE: runInterview,
}

func init() {
	interviewCmd.Flags().String("resume", "", "File containing the candidate resume")
	interviewCmd.Flags().String("jd", "", "File containing the job description")
	interviewCmd.Flags().String("save", "", "Write the finished recording as JSON to this file")
	interviewCmd.Flags().Bool("report", false, "Generate a coaching report when the interview ends")
	interviewCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
}

func runInterview(cmd *cobra.Command, _ []string) error {
	resumePath, _ := cmd.Flags().GetString("resume")
	jdPath, _ := cmd.Flags().GetString("jd")
	savePath, _ := cmd.Flags().GetString("save")
	wantReport, _ := cmd.Flags().GetBool("report")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	brief, err := loadBrief(resumePath, jdPath)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	out := cmd.OutOrStdout()
	sink := newTerminalSink(out, defaultStyles())
	services, err := bootstrap.BuildWithConfig(cmd.Context(), cfg, sink, nil)
	if err != nil {
		return err
	}
	logger := services.Logger

	if cfg.Metrics.Addr != "" {
		srv := newMetricsServer(cfg.Metrics.Addr, services.Registry)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", cfg.Metrics.Addr, "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The session outlives the signal context so End can tear it down cleanly.
	if err := services.Controller.Start(context.Background(), brief); err != nil {
		return fmt.Errorf("failed to start interview: %w", err)
	}

	select {
	case <-sigCtx.Done():
	case <-sink.Done():
	}

	rec, err := services.Controller.End(context.Background())
	if err != nil {
		return fmt.Errorf("failed to end interview: %w", err)
	}
	sink.Summary(rec)

	if savePath != "" {
		if err := saveRecording(savePath, rec); err != nil {
			return err
		}
		fmt.Fprintf(out, "Recording saved to %s\n", savePath)
	}

	if !wantReport {
		return nil
	}
	reportCtx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	result, err := services.Reports.Finalize(reportCtx, rec)
	if err != nil {
		return err
	}
	sink.Report(result)
	return nil
}

func loadBrief(resumePath string, jdPath string) (domain.Brief, error) {
	var brief domain.Brief
	if resumePath != "" {
		data, err := os.ReadFile(resumePath)
		if err != nil {
			return domain.Brief{}, fmt.Errorf("failed to read resume %s: %w", resumePath, err)
		}
		brief.ResumeText = string(data)
	}
	if jdPath != "" {
		data, err := os.ReadFile(jdPath)
		if err != nil {
			return domain.Brief{}, fmt.Errorf("failed to read job description %s: %w", jdPath, err)
		}
		brief.JobDescription = string(data)
	}
	return brief, nil
}
