package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/npatel023/tutorgraph/internal/config"
	"github.com/npatel023/tutorgraph/internal/generation"
	"github.com/npatel023/tutorgraph/internal/httpapi"
	"github.com/npatel023/tutorgraph/internal/llm"
	"github.com/npatel023/tutorgraph/internal/logging"
	"github.com/npatel023/tutorgraph/internal/novelty"
	"github.com/npatel023/tutorgraph/internal/store"
	"github.com/npatel023/tutorgraph/internal/syllabus"
	"github.com/npatel023/tutorgraph/internal/tutor"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tutoring API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides TUTORGRAPH_HTTP_ADDR)")
}

func runServe(cmd *cobra.Command) error {
	cfg := config.Load()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	log, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	s, err := store.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	machine, syllabi, err := buildCore(cmd.Context(), cfg, s, log)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(machine, syllabi, s.Messages(), httpapi.Options{
		Env:         cfg.Env,
		CORSOrigins: cfg.CORSOrigins,
	}, log)

	log.Infow("starting server", "addr", cfg.HTTPAddr, "env", cfg.Env, "db_driver", cfg.DB.Driver)
	return server.Run(cfg.HTTPAddr)
}

// buildCore assembles the generation pipeline and the turn machine on
// top of an open store.
func buildCore(ctx context.Context, cfg config.Config, s *store.Store, log *zap.SugaredLogger) (*tutor.Machine, *syllabus.Store, error) {
	if err := cfg.LLM.Validate(); err != nil {
		discovered, ok := llm.DiscoverConfig()
		if !ok {
			return nil, nil, fmt.Errorf("llm config: %w", err)
		}
		log.Infow("using discovered LLM provider", "provider", discovered.Provider)
		cfg.LLM = discovered
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, s.CallLog(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("init llm provider: %w", err)
	}

	svc := generation.NewClient(provider, cfg.Generation)
	gen := novelty.NewGenerator(svc, s.Items(), s.Registry(), cfg.Novelty, log)
	syllabi := syllabus.NewStore(s.Syllabi(), svc, log)
	machine := tutor.NewMachine(s.Sessions(), s.Messages(), s.Items(), syllabi, svc, gen, cfg.Tutor, log)
	return machine, syllabi, nil
}
