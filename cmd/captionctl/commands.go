package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/internal/seeder"
)

func newTopCmd(e *env) *cobra.Command {
	var date string
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the leaderboard for a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := e.svc.TopCaptions(cmd.Context(), date, limit)
			if err != nil {
				return err
			}
			if records == nil {
				records = []model.CaptionRecord{}
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "challenge date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries (default from config)")
	requireFlag(cmd, "date")
	return cmd
}

func newAddCmd(e *env) *cobra.Command {
	var sub model.Submission
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a caption",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := e.svc.AddCaption(cmd.Context(), sub)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&sub.UserID, "user", "", "submitting user id")
	cmd.Flags().StringVar(&sub.ChallengeDate, "date", "", "challenge date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sub.Caption, "caption", "", "caption text")
	requireFlag(cmd, "user", "date", "caption")
	return cmd
}

func newScoresCmd(e *env) *cobra.Command {
	var date, file string
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Apply a caption->score JSON object to a date",
		Long: `Apply scores from a JSON object mapping caption text to score, e.g.
{"dog": 5, "cat": 2}. Use --file - to read from stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scores, err := readScores(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			n, err := e.svc.UpdateScores(cmd.Context(), date, scores)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"date": date, "updated": n})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "challenge date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&file, "file", "", "scores JSON file, or - for stdin")
	requireFlag(cmd, "date", "file")
	return cmd
}

func readScores(stdin io.Reader, file string) (map[string]float64, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open scores: %w", err)
		}
		defer f.Close()
		r = f
	}
	var scores map[string]float64
	if err := json.NewDecoder(r).Decode(&scores); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return scores, nil
}

func newStatusCmd(e *env) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a date has been scored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			marker, ok, err := e.svc.Status(cmd.Context(), date)
			if err != nil {
				return err
			}
			out := map[string]any{"date": date, "computed": ok && marker.Computed}
			if ok {
				out["computedAt"] = marker.ComputedAt
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "challenge date (YYYY-MM-DD)")
	requireFlag(cmd, "date")
	return cmd
}

func newMarkCmd(e *env) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Mark a date as scored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.svc.MarkComputed(cmd.Context(), date); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"date": date, "computed": true})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "challenge date (YYYY-MM-DD)")
	requireFlag(cmd, "date")
	return cmd
}

func newComputeCmd(e *env) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Run a scoring pass through the configured collaborator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := e.svc.ComputeScores(cmd.Context(), date)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"success": true, "date": date, "updated": n})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "challenge date (YYYY-MM-DD)")
	requireFlag(cmd, "date")
	return cmd
}

func newSeedCmd(e *env) *cobra.Command {
	var cfg seeder.Config
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a running server with captions and verify its leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.SecretHeader = e.cfg.ComputeSecretHeader
			cfg.Secret = e.cfg.ComputeSecret
			stats, err := seeder.Run(cmd.Context(), cfg, seeder.WithLogger(e.log.Named("seed")))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"submitted": stats.Submitted,
				"failed":    stats.Failed,
				"computed":  stats.Computed,
				"entries":   stats.Entries,
				"duration":  stats.Duration.String(),
			})
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	cmd.Flags().StringVar(&cfg.Date, "date", time.Now().UTC().Format(model.DateLayout), "challenge date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&cfg.Count, "count", 100, "captions to submit")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 0, "concurrent submitters (default from CPU count)")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().BoolVar(&cfg.Compute, "compute", false, "trigger a scoring pass before verifying")
	return cmd
}
