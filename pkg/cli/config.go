package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/memory"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/usecase/session"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values shared across commands
type config struct {
	logLevel string

	// External classifier / rewriter
	geminiProject     string
	geminiLocation    string
	classifierTimeout time.Duration

	// Hybrid search tuning
	vectorWeight  float64
	keywordWeight float64
	oversample    int64

	// Persistence
	firestoreProject  string
	firestoreDatabase string
	bucket            string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("KIOKU_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for the optional external classifier and rewriter
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini (empty disables the LLM classifier)",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.DurationFlag{
			Name:        "classifier-timeout",
			Usage:       "Timeout for external classifier and rewriter calls",
			Value:       session.DefaultClassifierTimeout,
			Sources:     cli.EnvVars("KIOKU_CLASSIFIER_TIMEOUT"),
			Destination: &cfg.classifierTimeout,
		},
	}
}

// memoryFlags returns flags for hybrid search tuning
func memoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "vector-weight",
			Usage:       "Weight of the vector similarity score in hybrid search [0,1]",
			Value:       memory.DefaultVectorWeight,
			Sources:     cli.EnvVars("KIOKU_VECTOR_WEIGHT"),
			Destination: &cfg.vectorWeight,
		},
		&cli.FloatFlag{
			Name:        "keyword-weight",
			Usage:       "Weight of the keyword overlap score in hybrid search [0,1]",
			Value:       memory.DefaultKeywordWeight,
			Sources:     cli.EnvVars("KIOKU_KEYWORD_WEIGHT"),
			Destination: &cfg.keywordWeight,
		},
		&cli.IntFlag{
			Name:        "oversample",
			Usage:       "Vector candidate oversampling factor for hybrid search",
			Value:       memory.DefaultOversample,
			Sources:     cli.EnvVars("KIOKU_OVERSAMPLE"),
			Destination: &cfg.oversample,
		},
	}
}

// persistenceFlags returns flags for the optional knowledge base persistence
func persistenceFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for knowledge persistence (empty keeps memory in-process)",
			Sources:     cli.EnvVars("KIOKU_FIRESTORE_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("KIOKU_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for session transcripts (empty disables archival)",
			Sources:     cli.EnvVars("KIOKU_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

func allFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, memoryFlags(cfg)...)
	flags = append(flags, persistenceFlags(cfg)...)
	return flags
}

// setupLogger builds the logger from flags and attaches it to the context
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newMemoryService builds the memory service, wiring persistence when
// configured and rehydrating stored knowledge.
func (cfg *config) newMemoryService(ctx context.Context) (*memory.Service, error) {
	memCfg := memory.Config{
		VectorWeight:  cfg.vectorWeight,
		KeywordWeight: cfg.keywordWeight,
		Oversample:    int(cfg.oversample),
	}
	if err := memCfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid memory configuration")
	}

	opts := []memory.Option{memory.WithConfig(memCfg)}
	if cfg.firestoreProject != "" {
		repo, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create repository")
		}
		opts = append(opts, memory.WithRepository(repo))
	}

	svc := memory.New(opts...)
	if err := svc.Rehydrate(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// newCoordinator builds the coordinator with its optional collaborators
func (cfg *config) newCoordinator(ctx context.Context, mem *memory.Service) (*session.Coordinator, error) {
	input := session.NewInput{
		Memory:            mem,
		ClassifierTimeout: cfg.classifierTimeout,
	}

	if cfg.geminiProject != "" {
		gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini adapter")
		}
		input.Gemini = gemini
	}

	if cfg.bucket != "" {
		storage, err := adapter.NewStorage(ctx, cfg.bucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage adapter")
		}
		input.Storage = storage
	}

	return session.New(input), nil
}
