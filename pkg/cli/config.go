package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/banter/pkg/adapter"
	"github.com/m-mizutani/banter/pkg/repository"
	"github.com/m-mizutani/banter/pkg/service/gateway"
	"github.com/m-mizutani/banter/pkg/service/memorybank"
	"github.com/m-mizutani/banter/pkg/usecase/conversation"
	"github.com/m-mizutani/banter/pkg/usecase/group"
	"github.com/m-mizutani/banter/pkg/usecase/responder"
	"github.com/m-mizutani/banter/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Repository
	project  string
	database string
	local    bool

	// Logging
	logLevel string

	// Generation backend
	geminiAPIKey string
	geminiModel  string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.BoolFlag{
			Name:        "local",
			Usage:       "Use an in-process store instead of Firestore (state is not persisted)",
			Sources:     cli.EnvVars("BANTER_LOCAL"),
			Destination: &cfg.local,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("BANTER_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for generation backend configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "System Gemini API key, used when no keys are stored",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model for all generation calls",
			Value:       "gemini-2.0-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// setupLogger installs the configured logger as default and returns a
// context carrying it
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRepository creates the persistence store per configuration
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.local {
		return repository.NewMemory(), nil
	}

	if cfg.project == "" {
		return nil, goerr.New("project is required (or use --local)")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

func (cfg *config) factory() adapter.Factory {
	return adapter.NewFactory(adapter.WithModel(cfg.geminiModel))
}

// newSystemGateway builds the gateway on the system credential, used for
// memory management calls and as the pool fallback
func (cfg *config) newSystemGateway(ctx context.Context) (*gateway.Gateway, error) {
	if cfg.geminiAPIKey == "" {
		return nil, goerr.New("gemini-api-key is required")
	}

	gemini, err := cfg.factory()(ctx, cfg.geminiAPIKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return gateway.New(gemini), nil
}

// newPool builds the round-robin credential pool over the stored keys
func (cfg *config) newPool(repo repository.Repository, fallback gateway.Generator) *gateway.Pool {
	opts := []gateway.PoolOption{}
	if fallback != nil {
		opts = append(opts, gateway.WithFallback(fallback))
	}
	return gateway.NewPool(repo, cfg.factory(), opts...)
}

// newConversation wires the full turn-processing stack
func (cfg *config) newConversation(ctx context.Context, repo repository.Repository, emitter conversation.Emitter) (*conversation.UseCase, *memorybank.Service, error) {
	system, err := cfg.newSystemGateway(ctx)
	if err != nil {
		return nil, nil, err
	}

	pool := cfg.newPool(repo, system)
	memory := memorybank.New(repo, system)
	engine := responder.New(pool)

	opts := []conversation.Option{}
	if emitter != nil {
		opts = append(opts, conversation.WithEmitter(emitter))
	}
	uc := conversation.New(repo, engine, memory, opts...)
	return uc, memory, nil
}

// newGroup creates the group management usecase
func (cfg *config) newGroup(repo repository.Repository) *group.UseCase {
	return group.New(repo)
}
