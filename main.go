package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/medai-secure/idsgame-sarsa/config"
	"github.com/medai-secure/idsgame-sarsa/environment"
	_ "github.com/medai-secure/idsgame-sarsa/environment/idsgame"
	"github.com/medai-secure/idsgame-sarsa/experiment"
	"github.com/medai-secure/idsgame-sarsa/experiment/store"
	"github.com/medai-secure/idsgame-sarsa/features"
	"github.com/medai-secure/idsgame-sarsa/logging"
	"github.com/medai-secure/idsgame-sarsa/plot"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p, ok := os.LookupEnv("IDSGAME_CONFIG"); ok && p != "" {
		return p
	}
	return "config.yaml"
}

func run(args []string) error {
	fl := flag.NewFlagSet("idsgame-sarsa", flag.ContinueOnError)
	configPath := fl.String("config", defaultConfigPath(),
		"path of the YAML configuration")
	envFile := fl.String("env-file", ".env",
		"file of environment variables loaded if present")
	validate := fl.Bool("validate", false,
		"validate the configuration and exit")
	resume := fl.StringSlice("resume", nil,
		"Q-table snapshots loaded into the agent before training")
	if err := fl.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil &&
		!errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %v: %w", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if err := cfg.Validate(environment.Registry{}); err != nil {
		return err
	}
	if *validate {
		fmt.Printf("%v: configuration valid\n", *configPath)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	runID := uuid.New().String()
	logger, closer, err := logging.New(cfg.Logging, runID)
	if err != nil {
		return err
	}
	defer closer.Close()

	return train(ctx, cfg, runID, logger, *resume)
}

// train builds the game, agent, and trainer described by cfg and runs
// the experiment
func train(ctx context.Context, cfg *config.Config, runID string,
	logger zerolog.Logger, resume []string) error {
	logger.Info().Str("config", cfg.Path()).Msg(cfg.String())

	game, err := environment.Make(cfg.Environment.Name,
		cfg.Environment.EntryPoint, cfg.EnvParams())
	if err != nil {
		return err
	}
	defer game.Close()

	encoder, err := newEncoder(cfg, game)
	if err != nil {
		return err
	}

	seed := uint64(cfg.Environment.Parameters.Seed)
	created, err := cfg.AgentConfig().CreateAgent(game, encoder, seed)
	if err != nil {
		return err
	}
	a, ok := created.(experiment.Agent)
	if !ok {
		return fmt.Errorf("train: agent %T cannot be trained", created)
	}

	if len(resume) > 0 {
		s, err := experiment.Restore(a, encoder, resume...)
		if err != nil {
			return err
		}
		logger.Info().Strs("snapshots", resume).Int("episode", s.Episode).
			Float64("epsilon", s.Epsilon).Msg("Restored Q-tables")
	}

	var db *store.Store
	if cfg.Logging.ResultsDB != "" {
		db, err = store.Open(cfg.Logging.ResultsDB)
		if err != nil {
			return err
		}
		defer db.Close()

		err = db.StartRun(store.RunInfo{
			ID:         runID,
			EnvName:    cfg.Environment.Name,
			EntryPoint: cfg.Environment.EntryPoint,
			ConfigPath: cfg.Path(),
			Seed:       cfg.Environment.Parameters.Seed,
			StartedAt:  time.Now(),
		})
		if err != nil {
			return err
		}
	}

	var progress io.Writer
	if cfg.Visualization.ShowTrainingProgress {
		progress = os.Stdout
	}

	trainer, err := experiment.NewTrainer(experiment.TrainerConfig{
		Schedule:      cfg.TrainConfig(),
		RunID:         runID,
		Game:          game,
		Agent:         a,
		Encoder:       encoder,
		Logger:        logger,
		CheckpointDir: cfg.SARSA.Checkpoint.Dir,
		ResultsDir:    cfg.SARSA.Logging.Dir,
		Compress:      cfg.SARSA.Checkpoint.Compress,
		Metrics:       cfg.SARSA.Logging.Metrics,
		Store:         db,
		Progress:      progress,
	})
	if err != nil {
		return err
	}

	trainResult, evalResult, err := trainer.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Visualization.SavePlots {
		v := cfg.Visualization
		for prefix, r := range map[string]*experiment.Result{
			store.Train: trainResult,
			store.Eval:  evalResult,
		} {
			paths, err := plot.Curves(r, v.MetricsToPlot, v.PlotsDir, prefix)
			if err != nil {
				return err
			}
			logger.Info().Strs("plots", paths).Msg("Saved plots")
		}
	}
	return nil
}

// newEncoder returns the state encoder selected by sarsa.state
func newEncoder(cfg *config.Config, game environment.Game) (features.Encoder,
	error) {
	s := cfg.SARSA.State
	if !s.FullStateSpace {
		return features.NewTabular(game), nil
	}

	p, err := features.NewPipeline(s.NormalizeFeatures, s.ZeroMeanFeatures,
		s.MergedADFeatures, cfg.SARSA.Memory.StateLength, game.MaxValue())
	if err != nil {
		return nil, err
	}
	return features.NewFull(p, s.MaxStates)
}
