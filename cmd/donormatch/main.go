package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/config"
	"github.com/jask/donormatch/internal/database"
	"github.com/jask/donormatch/internal/dedup"
	"github.com/jask/donormatch/internal/directory"
	"github.com/jask/donormatch/internal/llm"
	"github.com/jask/donormatch/internal/logging"
	"github.com/jask/donormatch/internal/secrets"
	"github.com/jask/donormatch/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env is what every command needs, built once in PersistentPreRunE.
type env struct {
	cfg    config.Config
	logger *zap.SugaredLogger
	db     *sql.DB
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var verbose bool
	root := &cobra.Command{
		Use:   "donormatch",
		Short: "Match scanned donation payments to customer records",
		Long: `donormatch reads extracted check and payment data, merges duplicate scans of
the same payment, and matches each payer to a customer directory (a local
roster or QuickBooks Online), flagging contact details that need updating.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}
			e.cfg = cfg
			e.logger = logging.New(cfg.Logging)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
			if e.db != nil {
				return e.db.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newProcessCmd(e),
		newExtractCmd(e),
		newCustomersCmd(e),
		newBatchesCmd(e),
		newReviewCmd(e),
		newExportCmd(e),
		newSyncCmd(e),
		newSeedCmd(e),
		newConfigCmd(e),
		newSecretsCmd(),
		newResetCmd(e),
	)
	return root
}

// open migrates and opens the sqlite store on first use.
func (e *env) open() (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	if err := database.RunMigrations(e.cfg.Database.Path, e.cfg.Database.MigrationsPath); err != nil {
		return nil, err
	}
	db, err := database.Open(e.cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	e.db = db
	return db, nil
}

func (e *env) directory() (directory.Directory, error) {
	switch strings.ToLower(strings.TrimSpace(e.cfg.Directory.Kind)) {
	case "", "sqlite":
		db, err := e.open()
		if err != nil {
			return nil, err
		}
		return directory.NewSQLiteDirectory(db), nil
	case "quickbooks", "qbo":
		qb := e.cfg.QuickBooks
		token := qb.AccessToken
		if token == "" {
			token = storedSecret(secrets.QuickBooks)
		}
		client, err := directory.NewQuickBooksClient(directory.QuickBooksConfig{
			BaseURL:           qb.BaseURL,
			RealmID:           qb.RealmID,
			AccessToken:       token,
			Timeout:           time.Duration(qb.TimeoutSeconds) * time.Second,
			RequestsPerSecond: qb.RequestsPerSecond,
		}, e.logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, eris.Errorf("unknown directory kind %q", e.cfg.Directory.Kind)
}

func (e *env) extractor() (llm.Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(e.cfg.LLM.Provider)) {
	case "file":
		return llm.FileExtractor{}, nil
	case "", "openai":
		key := e.cfg.LLM.APIKey
		if key == "" {
			key = storedSecret(secrets.OpenAI)
		}
		ex := llm.NewOpenAIExtractor(key, e.cfg.LLM.Model)
		if e.cfg.LLM.BaseURL != "" {
			ex.SetBaseURL(e.cfg.LLM.BaseURL)
		}
		ex.Logger = e.logger
		return ex, nil
	}
	return nil, eris.Errorf("unknown llm provider %q", e.cfg.LLM.Provider)
}

func (e *env) pipeline() *service.Pipeline {
	return &service.Pipeline{
		Dedup:              dedup.New(e.cfg.Dedup.CheckNumberKeepDigits, e.logger),
		Threshold:          e.cfg.Match.Threshold,
		AutoMatchThreshold: e.cfg.Match.AutoMatchThreshold,
		Workers:            e.cfg.Match.Workers,
		Preload:            e.cfg.Directory.Preload,
		Logger:             e.logger,
	}
}

func storedSecret(name string) string {
	store, err := secrets.Default()
	if err != nil {
		return ""
	}
	v, err := store.Fetch(name)
	if err != nil {
		return ""
	}
	return v
}
