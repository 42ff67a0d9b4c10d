package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding/openai"
	"docrag/internal/service"
	"docrag/internal/vectorstore"
	"docrag/internal/vectorstore/chroma"
	"docrag/internal/vectorstore/memory"
	"docrag/internal/vectorstore/qdrant"
)

// app holds the lazily assembled components shared by all subcommands.
type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
}

func NewRootCmd(version string) *cobra.Command {
	a := &app{}
	var cfgPath string
	var debug bool

	cmd := &cobra.Command{
		Use:     "docrag",
		Short:   "Ingest and search markdown documentation in a vector store",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfgPath == "" {
				a.cfg, _, err = config.LoadDefault()
			} else {
				a.cfg, err = config.Load(cfgPath)
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if debug {
				a.cfg.Debug = true
			}
			if a.cfg.Debug {
				a.logger, err = zap.NewDevelopment()
				if err != nil {
					return err
				}
			} else {
				a.logger = zap.NewNop()
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (default: ./config.yaml, then ~/.config/docrag/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		NewIngestCmd(a),
		NewQueryCmd(a),
		NewSearchCmd(a),
		NewStatsCmd(a),
		NewExportCmd(a),
		NewImportCmd(a),
		NewWatchCmd(a),
	)
	return cmd
}

// newClient assembles the document store client from the loaded config.
// Commands that never call the embedding generator pass needEmbedder false
// and work without credentials.
func (a *app) newClient(needEmbedder bool) (*service.DocStore, error) {
	var store vectorstore.Storage
	switch a.cfg.Store.Type {
	case "chroma", "":
		store = chroma.NewStorage(chroma.Config{
			URL:        a.cfg.Store.URL,
			Collection: a.cfg.Store.Collection,
			Timeout:    time.Duration(a.cfg.Store.TimeoutSecs) * time.Second,
		})
	case "qdrant":
		store = qdrant.NewStorage(qdrant.Config{
			URL:        a.cfg.Store.URL,
			APIKey:     os.Getenv(a.cfg.Store.APIKeyEnv),
			Collection: a.cfg.Store.Collection,
			Timeout:    time.Duration(a.cfg.Store.TimeoutSecs) * time.Second,
		})
	case "memory":
		store = memory.NewStorage()
	default:
		return nil, fmt.Errorf("unknown store type: %s", a.cfg.Store.Type)
	}

	var embedder domain.Embedder
	if needEmbedder {
		client, err := openai.NewClient(openai.Config{
			BaseURL:   a.cfg.Embedder.BaseURL,
			APIKeyEnv: a.cfg.Embedder.APIKeyEnv,
			Model:     a.cfg.Embedder.Model,
			Timeout:   time.Duration(a.cfg.Embedder.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		embedder = client
	}

	ch, err := chunker.NewWindowChunker(a.cfg.Chunking.ChunkSize, a.cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	return service.New(store, embedder,
		service.WithChunker(ch),
		service.WithBatchSize(a.cfg.Ingest.BatchSize),
		service.WithLogger(a.logger),
	), nil
}

// printReport summarizes an ingest outcome; callers inspect the counts
// rather than an error, partial failure is not fatal.
func printReport(cmd *cobra.Command, report *service.IngestReport) {
	fmt.Fprintf(cmd.OutOrStdout(), "ingested %d chunk(s), %d failed\n", report.Ingested, len(report.Failed))
	for _, f := range report.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "  failed %s (%s): %s\n", f.ID, f.Source, f.Reason)
	}
}
