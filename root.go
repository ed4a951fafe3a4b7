package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"feedback_agent/config"
	"feedback_agent/evaluator"
	"feedback_agent/generator"
	"feedback_agent/intake"
	"feedback_agent/logger"
	"feedback_agent/pipeline"
	"feedback_agent/publisher"
	"feedback_agent/storage"
)

var (
	cfgFile string
	envFile string
	verbose bool
	mockLLM bool
)

var rootCmd = &cobra.Command{
	Use:   "feedback-agent",
	Short: "Self-evaluating personal development feedback generator",
	Long: `feedback-agent turns a personal development request into a structured
feedback document, reviews it against a quality rubric and revises it until
it passes or the revision budget runs out.

Commands:
  run     Generate feedback for one request
  serve   Start the HTTP API
  runs    Inspect stored runs`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
	rootCmd.PersistentFlags().BoolVar(&mockLLM, "mock", false, "use canned backend responses")
}

// app holds the wired components shared by every command.
type app struct {
	cfg      config.Config
	log      *logrus.Logger
	logClose io.Closer
	store    storage.Store
	intake   *intake.Crew
	pipeline *pipeline.Pipeline
	pub      *publisher.Publisher
}

func newApp(ctx context.Context, overrides func(*config.Config)) (*app, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if mockLLM {
		cfg.LLM.Mock = true
	}
	if overrides != nil {
		overrides(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log, logClose, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	client, err := cfg.LLM.Client()
	if err != nil {
		logClose.Close()
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	if client == nil {
		log.Info("no llm backend configured, using local heuristics")
	}

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		logClose.Close()
		return nil, err
	}
	p, err := pipeline.New(
		generator.New(client, generator.WithLogger(log)),
		evaluator.New(client, evaluator.WithLogger(log)),
		store,
		cfg.Pipeline,
		pipeline.WithLogger(log),
	)
	if err != nil {
		store.Close(ctx)
		logClose.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		logClose: logClose,
		store:    store,
		intake:   intake.New(client, log),
		pipeline: p,
		pub:      publisher.New(cfg.Publish, nil, log),
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		a.log.WithError(err).Warn("close store")
	}
	_ = a.logClose.Close()
}
