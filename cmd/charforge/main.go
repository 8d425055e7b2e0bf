package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"charforge/internal/character"
	"charforge/internal/checkpoint"
	"charforge/internal/config"
	"charforge/internal/generation"
	"charforge/internal/logging"
	"charforge/internal/pipeline"
	"charforge/internal/prompt"
	"charforge/internal/ux"
)

var (
	// Global flags
	verbose    bool
	apiKey     string
	workDir    string
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "charforge",
	Short: "charforge - resumable character profile generator",
	Long: `charforge drives a multi-stage generative pipeline that turns a few
facts about a character into a complete profile: name, narrative,
slogan, short bio, greeting, tags, templated definitions and sample
dialogue.

Every generated field is checkpointed under the working directory, so
an interrupted run resumes exactly where it stopped. Delete an
artifact (or use "charforge reset") to force regeneration.

Run without arguments to start the pipeline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context())
	},
}

// runCmd is the explicit form of the default action.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the character pipeline (default action)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context())
	},
}

// resetCmd clears the checkpoint directory.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every checkpoint artifact to force full regeneration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := checkpoint.New(cfg.Paths.WorkDir)
		if err := store.Reset(); err != nil {
			return fmt.Errorf("failed to reset checkpoints: %w", err)
		}
		fmt.Printf("Checkpoints cleared under %s\n", cfg.Paths.WorkDir)
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.Backend.APIKey = apiKey
	}
	if workDir != "" {
		cfg.Paths.WorkDir = workDir
	}
	return cfg, nil
}

func runPipeline(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Paths.WorkDir, cfg.Logging); err != nil {
		logger.Warn("file logging disabled", zap.Error(err))
	}
	logging.Boot("charforge starting, workdir=%s model=%s", cfg.Paths.WorkDir, cfg.Backend.Model)

	questions, err := character.LoadQuestions(cfg.Paths.QuestionsFile)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}
	templates, err := character.LoadTemplates(cfg.Paths.TemplatesDir)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	logger.Debug("inputs loaded",
		zap.Int("questions", len(questions)),
		zap.Int("templates", len(templates)))

	corpus, err := prompt.Load()
	if err != nil {
		return err
	}

	client := generation.NewGroqClientWithConfig(generation.GroqConfig{
		APIKey:      cfg.Backend.APIKey,
		BaseURL:     cfg.Backend.BaseURL,
		Model:       cfg.Backend.Model,
		LargeModel:  cfg.Backend.LargeModel,
		Timeout:     cfg.Backend.TimeoutDuration(),
		MaxAttempts: cfg.Backend.MaxAttempts,
		RetryDelay:  cfg.Backend.RetryDelayDuration(),
	})

	console := ux.NewConsole(os.Stdin, os.Stdout)
	p, err := pipeline.New(pipeline.Options{
		Client:    client,
		Store:     checkpoint.New(filepath.Clean(cfg.Paths.WorkDir)),
		Corpus:    corpus,
		Console:   console,
		Prompter:  console,
		Config:    cfg,
		Questions: questions,
		Templates: templates,
	})
	if err != nil {
		return err
	}

	if err := p.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			console.Warnf("Interrupted. Progress is saved; run again to resume.")
			return nil
		}
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "backend API key (overrides config and environment)")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", "", "checkpoint working directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "charforge.yaml", "path to the configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resetCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
