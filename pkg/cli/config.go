package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/adapter"
	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/repository"
	"github.com/m-mizutani/claimpilot/pkg/service/compliance"
	"github.com/m-mizutani/claimpilot/pkg/service/drafting"
	"github.com/m-mizutani/claimpilot/pkg/service/estimation"
	"github.com/m-mizutani/claimpilot/pkg/service/extraction"
	"github.com/m-mizutani/claimpilot/pkg/service/locator"
	"github.com/m-mizutani/claimpilot/pkg/usecase/claim"
	"github.com/m-mizutani/claimpilot/pkg/usecase/orchestrator"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Repository
	backend    string
	sqlitePath string
	project    string
	database   string

	// LLM for summaries, insurer emails and optional extraction
	llm             string
	llmExtraction   bool
	anthropicAPIKey string
	claudeModel     string
	geminiProject   string
	geminiLocation  string
	geminiModel     string
	geminiAPIKey    string

	// Object storage for drafts and transcripts
	bucket       string
	objectPrefix string
	storageDir   string

	// Agents
	catalogFile  string
	catalogTable string
	bqLocation   string
	policyDir    string
	timeout      time.Duration
}

// globalFlags returns logging and repository flags used by every command
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CLAIMPILOT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("CLAIMPILOT_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "backend",
			Aliases:     []string{"b"},
			Usage:       "Claim repository backend (memory, sqlite, firestore)",
			Value:       "memory",
			Sources:     cli.EnvVars("CLAIMPILOT_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file for the sqlite backend",
			Value:       "claimpilot.db",
			Sources:     cli.EnvVars("CLAIMPILOT_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
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
	}
}

// llmFlags returns flags for the LLM client
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm",
			Usage:       "LLM that summarizes long claim documents and writes insurer emails (none, gemini, claude)",
			Value:       "none",
			Sources:     cli.EnvVars("CLAIMPILOT_LLM"),
			Destination: &cfg.llm,
		},
		&cli.BoolFlag{
			Name:        "llm-extraction",
			Usage:       "Extract claim fields with the LLM, keeping pattern matching as fallback",
			Sources:     cli.EnvVars("CLAIMPILOT_LLM_EXTRACTION"),
			Destination: &cfg.llmExtraction,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "claude-model",
			Usage:       "Claude model name",
			Sources:     cli.EnvVars("CLAIMPILOT_CLAUDE_MODEL"),
			Destination: &cfg.claudeModel,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
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
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Sources:     cli.EnvVars("CLAIMPILOT_GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key, used instead of Vertex AI when set",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
	}
}

// storageFlags returns flags for the object store that archives drafts and transcripts
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for drafts and transcripts",
			Sources:     cli.EnvVars("CLAIMPILOT_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "object-prefix",
			Usage:       "Object key prefix in the bucket",
			Sources:     cli.EnvVars("CLAIMPILOT_OBJECT_PREFIX"),
			Destination: &cfg.objectPrefix,
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Usage:       "Local directory for drafts and transcripts, used when no bucket is set",
			Sources:     cli.EnvVars("CLAIMPILOT_STORAGE_DIR"),
			Destination: &cfg.storageDir,
		},
	}
}

// agentFlags returns flags for the provider catalog, compliance policy and collaborator timeout
func agentFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "catalog-file",
			Usage:       "YAML file with the repair shop and provider catalog",
			Sources:     cli.EnvVars("CLAIMPILOT_CATALOG_FILE"),
			Destination: &cfg.catalogFile,
		},
		&cli.StringFlag{
			Name:        "catalog-table",
			Usage:       "BigQuery table (dataset.table) with the provider catalog",
			Sources:     cli.EnvVars("CLAIMPILOT_CATALOG_TABLE"),
			Destination: &cfg.catalogTable,
		},
		&cli.StringFlag{
			Name:        "bigquery-location",
			Usage:       "BigQuery location for catalog queries",
			Sources:     cli.EnvVars("CLAIMPILOT_BIGQUERY_LOCATION"),
			Destination: &cfg.bqLocation,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies overriding the built-in readiness policy",
			Sources:     cli.EnvVars("CLAIMPILOT_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.DurationFlag{
			Name:        "agent-timeout",
			Usage:       "Timeout for each agent call",
			Value:       orchestrator.DefaultTimeout,
			Sources:     cli.EnvVars("CLAIMPILOT_AGENT_TIMEOUT"),
			Destination: &cfg.timeout,
		},
	}
}

// allFlags is the flag set of commands that build the whole agent stack
func allFlags(cfg *config) []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, globalFlags(cfg)...)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, storageFlags(cfg)...)
	flags = append(flags, agentFlags(cfg)...)
	return flags
}

// setupLogger installs the default logger and returns ctx carrying it
func (cfg *config) setupLogger(ctx context.Context) (context.Context, error) {
	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		return ctx, err
	}
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return ctx, err
	}

	logger := logging.New(nil, logging.WithLevel(level), logging.WithFormat(format))
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

type closer func() error

// newRepository creates the claim repository selected by --backend
func (cfg *config) newRepository(ctx context.Context) (interfaces.ClaimRepository, closer, error) {
	noop := func() error { return nil }

	switch cfg.backend {
	case "memory", "":
		return repository.NewMemory(), noop, nil

	case "sqlite":
		if cfg.sqlitePath == "" {
			return nil, nil, goerr.New("sqlite-path is required")
		}
		repo, err := repository.NewSQLite(cfg.sqlitePath)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, repo.Close, nil

	case "firestore":
		if cfg.project == "" {
			return nil, nil, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, nil, goerr.New("database is required")
		}
		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, repo.Close, nil

	default:
		return nil, nil, goerr.New("unknown backend", goerr.V("backend", cfg.backend))
	}
}

// llmClient is implemented by both LLM adapters
type llmClient interface {
	interfaces.Summarizer
	interfaces.LLMClient
}

// newLLM returns nil when no LLM is configured
func (cfg *config) newLLM(ctx context.Context) (llmClient, error) {
	switch cfg.llm {
	case "none", "":
		if cfg.llmExtraction {
			return nil, goerr.New("llm-extraction requires --llm")
		}
		return nil, nil

	case "claude":
		if cfg.anthropicAPIKey == "" {
			return nil, goerr.New("anthropic-api-key is required")
		}
		var opts []adapter.ClaudeOption
		if cfg.claudeModel != "" {
			opts = append(opts, adapter.WithClaudeModel(cfg.claudeModel))
		}
		client, err := adapter.NewClaude(cfg.anthropicAPIKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Claude client")
		}
		return client, nil

	case "gemini":
		var opts []adapter.GeminiOption
		if cfg.geminiModel != "" {
			opts = append(opts, adapter.WithGenerativeModel(cfg.geminiModel))
		}
		if cfg.geminiAPIKey != "" {
			opts = append(opts, adapter.WithGeminiAPIKey(cfg.geminiAPIKey))
		} else {
			if cfg.geminiProject == "" {
				return nil, goerr.New("gemini-project is required")
			}
			if cfg.geminiLocation == "" {
				return nil, goerr.New("gemini-location is required")
			}
		}
		client, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return client, nil

	default:
		return nil, goerr.New("unknown llm", goerr.V("llm", cfg.llm))
	}
}

// newStore returns nil when neither a bucket nor a directory is configured
func (cfg *config) newStore(ctx context.Context) (interfaces.ObjectStore, error) {
	if cfg.bucket != "" {
		var opts []adapter.CloudStorageOption
		if cfg.objectPrefix != "" {
			opts = append(opts, adapter.WithObjectPrefix(cfg.objectPrefix))
		}
		store, err := adapter.NewCloudStorage(ctx, cfg.bucket, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage")
		}
		return store, nil
	}

	if cfg.storageDir != "" {
		return adapter.NewFileStorage(cfg.storageDir), nil
	}

	return nil, nil
}

// newCatalog returns nil to use the built-in provider catalog
func (cfg *config) newCatalog(ctx context.Context) (locator.Catalog, error) {
	if cfg.catalogFile != "" && cfg.catalogTable != "" {
		return nil, goerr.New("catalog-file and catalog-table are exclusive")
	}

	if cfg.catalogFile != "" {
		catalog, err := locator.NewYAMLCatalog(cfg.catalogFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load provider catalog")
		}
		return catalog, nil
	}

	if cfg.catalogTable != "" {
		if cfg.project == "" {
			return nil, goerr.New("project is required for catalog-table")
		}
		var opts []adapter.BigQueryOption
		if cfg.bqLocation != "" {
			opts = append(opts, adapter.WithBigQueryLocation(cfg.bqLocation))
		}
		bq, err := adapter.NewBigQuery(ctx, cfg.project, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create BigQuery client")
		}
		catalog, err := locator.NewBigQueryCatalog(bq, cfg.catalogTable)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create BigQuery catalog")
		}
		return catalog, nil
	}

	return nil, nil
}

func (cfg *config) newCompliance(ctx context.Context) (*compliance.Service, error) {
	var opts []compliance.Option
	if cfg.policyDir != "" {
		opts = append(opts, compliance.WithPolicyDir(cfg.policyDir))
	}
	svc, err := compliance.New(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create compliance checker")
	}
	return svc, nil
}

// app is the wired agent stack shared by commands
type app struct {
	claims    *claim.UseCase
	estimator *estimation.Service
	orch      *orchestrator.Orchestrator
	store     interfaces.ObjectStore
	close     closer
}

// newApp builds every agent and the orchestrator from cfg
func (cfg *config) newApp(ctx context.Context) (*app, error) {
	repo, closeRepo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	a, err := cfg.wire(ctx, repo)
	if err != nil {
		_ = closeRepo()
		return nil, err
	}
	a.close = closeRepo

	logging.From(ctx).Debug("agents initialized",
		slog.String("backend", cfg.backend),
		slog.String("llm", cfg.llm),
		slog.Bool("llm_extraction", cfg.llmExtraction),
		slog.Bool("storage", a.store != nil),
	)
	return a, nil
}

func (cfg *config) wire(ctx context.Context, repo interfaces.ClaimRepository) (*app, error) {
	var (
		claimOpts []claim.Option
		draftOpts []drafting.Option
		extractor interfaces.Extractor
	)
	patterns := extraction.New()
	extractor = patterns

	llm, err := cfg.newLLM(ctx)
	if err != nil {
		return nil, err
	}
	if llm != nil {
		claimOpts = append(claimOpts, claim.WithSummarizer(llm))
		draftOpts = append(draftOpts, drafting.WithWriter(llm))
		if cfg.llmExtraction {
			extractor = extraction.NewLLM(llm, patterns)
		}
	}

	store, err := cfg.newStore(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		draftOpts = append(draftOpts, drafting.WithStore(store))
	}

	catalog, err := cfg.newCatalog(ctx)
	if err != nil {
		return nil, err
	}

	checker, err := cfg.newCompliance(ctx)
	if err != nil {
		return nil, err
	}

	claims := claim.New(repo, extractor, claimOpts...)
	estimator := estimation.New()

	var orchOpts []orchestrator.Option
	if cfg.timeout > 0 {
		orchOpts = append(orchOpts, orchestrator.WithTimeout(cfg.timeout))
	}

	return &app{
		claims:    claims,
		estimator: estimator,
		orch: orchestrator.New(
			claims,
			estimator,
			locator.New(catalog),
			drafting.New(draftOpts...),
			checker,
			orchOpts...,
		),
		store: store,
	}, nil
}
