package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/captionboard/internal/adapters/repository"
	service "github.com/okian/captionboard/internal/app"
	"github.com/okian/captionboard/internal/config"
	"github.com/okian/captionboard/internal/domain/scoring"
	"github.com/okian/captionboard/pkg/logger"
)

// env carries what every subcommand needs once the root has loaded config.
type env struct {
	cfg *config.Config
	svc *service.Service
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:   "captionctl",
		Short: "Administer caption contest data",
		Long: `captionctl reads and writes the same data directory as captionboard.

Configuration comes from CAPTIONBOARD_* environment variables, an optional
YAML file named by CAPTIONBOARD_CONFIG, and an optional dotenv file named by
CAPTIONBOARD_ENV_FILE.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load(cmd)
		},
	}

	root.AddCommand(
		newTopCmd(e),
		newAddCmd(e),
		newScoresCmd(e),
		newStatusCmd(e),
		newMarkCmd(e),
		newComputeCmd(e),
		newSeedCmd(e),
	)
	return root
}

func (e *env) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitWith(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	e.cfg = cfg
	e.log = logger.Named("captionctl")
	e.svc = openService(cfg, e.log)
	return nil
}

// openService wires the file stores and, when configured, the scoring
// collaborator. The compute pipeline is not started; passes run inline.
func openService(cfg *config.Config, log logger.Logger) *service.Service {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithDefaultLimit(cfg.DefaultLimit),
		service.WithMaxLimit(cfg.MaxLeaderboardLimit),
		service.WithWriteRetries(cfg.WriteRetries),
	}
	if cfg.ComputeURL != "" {
		opts = append(opts, service.WithScorer(scoring.NewHTTPScorer(cfg.ComputeURL,
			scoring.WithSecret(cfg.ComputeSecretHeader, cfg.ComputeSecret),
			scoring.WithTimeout(cfg.ComputeTimeout()),
			scoring.WithRetries(cfg.ComputeRetries),
			scoring.WithRetryDelay(cfg.ComputeRetryDelay()),
			scoring.WithLogger(log.Named("scoring")),
		)))
	}
	return service.New(
		repository.NewCSVStore(cfg.DataDir, repository.WithLogger(log.Named("records"))),
		repository.NewMarkerStore(cfg.DataDir, repository.WithLogger(log.Named("flags"))),
		opts...,
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireFlag(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		_ = cmd.MarkFlagRequired(n)
	}
}
