// Command examgen runs one role of the exam generation fleet, or the
// whole fleet in a single process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/agents/conceptguide"
	"github.com/nswprep/examgen/internal/agents/correctness"
	"github.com/nswprep/examgen/internal/agents/database"
	"github.com/nswprep/examgen/internal/agents/generator"
	"github.com/nswprep/examgen/internal/agents/image"
	"github.com/nswprep/examgen/internal/agents/quality"
	"github.com/nswprep/examgen/internal/agents/verifier"
	"github.com/nswprep/examgen/internal/config"
	"github.com/nswprep/examgen/internal/llm"
	"github.com/nswprep/examgen/internal/logging"
	"github.com/nswprep/examgen/internal/orchestrator"
	"github.com/nswprep/examgen/internal/pipeline"
	"github.com/nswprep/examgen/internal/storage"
	"github.com/nswprep/examgen/internal/store"
)

var roles = []string{
	"orchestrator", "concept_guide", "question_generator", "quality_checker",
	"correctness", "image", "database", "verifier", "all",
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "examgen <role>",
		Short: "NSW Selective exam question generation fleet",
		Long: `examgen runs one service role of the exam generation fleet.

Roles: orchestrator, concept_guide, question_generator, quality_checker,
correctness, image, database, verifier — or "all" to run every role in
one process.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "roles",
		Short: "List available roles",
		Run: func(cmd *cobra.Command, args []string) {
			for _, r := range roles {
				fmt.Println(r)
			}
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "examgen: %v\n", err)
		os.Exit(1)
	}
}

func run(role string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	log := logging.Global().WithComponent("examgen")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if role == "all" {
		g, gctx := errgroup.WithContext(ctx)
		for _, r := range roles {
			if r == "all" {
				continue
			}
			g.Go(func() error { return runRole(gctx, r, cfg, log) })
		}
		return g.Wait()
	}
	for _, r := range roles {
		if r == role {
			return runRole(ctx, role, cfg, log)
		}
	}
	return fmt.Errorf("unknown role %q", role)
}

func runRole(ctx context.Context, role string, cfg *config.Config, log *logging.Logger) error {
	agent, port, err := buildAgent(ctx, role, cfg)
	if err != nil {
		return fmt.Errorf("starting %s: %w", role, err)
	}
	access := zerolog.New(os.Stdout).With().Timestamp().Str("role", role).Logger()
	log.Info("starting %s on port %d", role, port)

	if role == "orchestrator" {
		// The orchestrator serves the task protocol and a REST surface on
		// the same port.
		o := agent.(*orchestrator.Orchestrator)
		return a2a.NewServerWithExtra(o, port, access, o.Router()).ListenAndServe(ctx)
	}
	return a2a.NewServer(agent, port, access).ListenAndServe(ctx)
}

// limiter is shared by every LLM client in the process so "all" mode
// stays under the provider's rate limits.
var limiter = llm.NewRateLimiter(60, 10, 8)

func buildAgent(ctx context.Context, role string, cfg *config.Config) (a2a.Agent, int, error) {
	newLLM := func(agentName string) *llm.Client {
		pcfg := llm.DefaultGeminiConfig()
		pcfg.APIKey = cfg.Gemini.APIKey
		pcfg.Model = cfg.Gemini.FlashModel
		return llm.NewClient(agentName, llm.NewGeminiProvider(pcfg)).WithRateLimiter(limiter)
	}

	switch role {
	case "concept_guide":
		return conceptguide.NewAgent(conceptguide.NewRegistry(cfg.ConceptsDir), cfg.Ports.ConceptGuide), cfg.Ports.ConceptGuide, nil

	case "question_generator":
		return generator.NewAgent(newLLM("QuestionGeneratorAgent"), cfg.Gemini.ProModel, cfg.Ports.QuestionGenerator), cfg.Ports.QuestionGenerator, nil

	case "quality_checker":
		return quality.NewAgent(newLLM("QualityCheckerAgent"), cfg.Gemini.ProModel, cfg.Ports.QualityChecker), cfg.Ports.QualityChecker, nil

	case "correctness":
		return correctness.NewAgent(newLLM("CorrectnessAgent"), cfg.Gemini.FlashModel, cfg.Ports.Correctness, cfg.Pipeline.StrictCorrectness), cfg.Ports.Correctness, nil

	case "verifier":
		return verifier.NewAgent(newLLM("VerifierAgent"), cfg.Gemini.FlashModel, cfg.Ports.Verifier), cfg.Ports.Verifier, nil

	case "image":
		uploader, err := storage.NewR2(ctx, cfg.R2)
		if err != nil {
			return nil, 0, err
		}
		return image.NewAgent(newLLM("ImageAgent"), cfg.Gemini.ImageModel, uploader, cfg.Ports.Image), cfg.Ports.Image, nil

	case "database":
		st, err := store.New(ctx, cfg.Database.ConnString())
		if err != nil {
			return nil, 0, err
		}
		return database.NewAgent(st, cfg.Ports.Database), cfg.Ports.Database, nil

	case "orchestrator":
		return buildOrchestrator(cfg)

	default:
		return nil, 0, fmt.Errorf("unknown role %q", role)
	}
}

func buildOrchestrator(cfg *config.Config) (a2a.Agent, int, error) {
	base := func(port int) string { return a2a.Endpoint{Port: port}.BaseURL() }

	controller := pipeline.NewController(
		a2a.NewClient("Orchestrator", a2a.DefaultTimeout),
		pipeline.Endpoints{
			ConceptGuide: base(cfg.Ports.ConceptGuide),
			Generator:    base(cfg.Ports.QuestionGenerator),
			Quality:      base(cfg.Ports.QualityChecker),
			Correctness:  base(cfg.Ports.Correctness),
		},
		pipeline.Config{MaxRevisions: cfg.Pipeline.MaxRevisions},
	)

	plans, err := orchestrator.LoadPlans("plans.yaml")
	if err != nil {
		return nil, 0, err
	}
	for _, p := range plans {
		if p.RetryRounds == 0 {
			p.RetryRounds = cfg.Pipeline.RetryRounds
		}
	}

	o := orchestrator.New(
		a2a.NewClient("Orchestrator", a2a.BatchTimeout),
		controller,
		orchestrator.Peers{
			ConceptGuide: base(cfg.Ports.ConceptGuide),
			Image:        base(cfg.Ports.Image),
			Database:     base(cfg.Ports.Database),
			All: map[string]string{
				"concept_guide":      base(cfg.Ports.ConceptGuide),
				"question_generator": base(cfg.Ports.QuestionGenerator),
				"quality_checker":    base(cfg.Ports.QualityChecker),
				"correctness":        base(cfg.Ports.Correctness),
				"verifier":           base(cfg.Ports.Verifier),
				"image":              base(cfg.Ports.Image),
				"database":           base(cfg.Ports.Database),
			},
		},
		orchestrator.Config{
			Plans: plans,
			TopicIDs: map[string]string{
				"thinking_skills": cfg.TopicIDs["thinking_skills"],
				"math":            cfg.TopicIDs["mathematics"],
			},
		},
		cfg.Ports.Orchestrator,
	)
	return o, cfg.Ports.Orchestrator, nil
}
