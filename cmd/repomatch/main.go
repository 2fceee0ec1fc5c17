package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"repomatch/internal/cmdlog"
	"repomatch/internal/config"
	"repomatch/internal/jobs"
	"repomatch/internal/logging"
	"repomatch/internal/metrics"
	"repomatch/internal/model"
	"repomatch/internal/recommend"
	"repomatch/internal/store/sqlitestore"
	"repomatch/internal/theme"
)

type globals struct {
	configPath string
	dbPath     string
	logLevel   string
	cfg        config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "repomatch",
		Short:         "Recommend repositories similar to the ones a user owns",
		Long:          theme.Banner(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init" {
				return nil
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if g.dbPath != "" {
				cfg.Storage.DBPath = g.dbPath
			}
			if g.logLevel != "" {
				cfg.Logging.Level = g.logLevel
			}
			logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cmd.ErrOrStderr()})
			g.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config path (default $REPOMATCH_CONFIG or ./repomatch.yaml)")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides storage.db_path)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(initCmd(), recommendCmd(g), batchCmd(g), importCmd(g))
	return root
}

func initCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("init", func() error {
				if err := config.Save(path, config.Default()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", config.DefaultPath, "path to write config")
	return cmd
}

type paramFlags struct {
	topN, topClusters, reposPerCluster int
	method                             string
}

func (f *paramFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.topN, "top-n", 0, "similar repositories to return (default recommend.top_n)")
	cmd.Flags().IntVar(&f.topClusters, "top-clusters", 0, "languages to cluster on (default recommend.top_clusters)")
	cmd.Flags().IntVar(&f.reposPerCluster, "repos-per-cluster", 0, "repositories per language (default recommend.repos_per_cluster)")
	cmd.Flags().StringVar(&f.method, "method", "", "cosine or euclidean (default recommend.similarity_method)")
}

// params starts from config and applies only the flags the user set.
func (f *paramFlags) params(cmd *cobra.Command, cfg config.RecommendConfig) recommend.Params {
	p := recommend.Params{
		TopN:             cfg.TopN,
		TopClusters:      cfg.TopClusters,
		ReposPerCluster:  cfg.ReposPerCluster,
		SimilarityMethod: cfg.SimilarityMethod,
	}
	if cmd.Flags().Changed("top-n") {
		p.TopN = f.topN
	}
	if cmd.Flags().Changed("top-clusters") {
		p.TopClusters = f.topClusters
	}
	if cmd.Flags().Changed("repos-per-cluster") {
		p.ReposPerCluster = f.reposPerCluster
	}
	if cmd.Flags().Changed("method") {
		p.SimilarityMethod = f.method
	}
	return p
}

func openEngine(cfg config.Config) (*sqlitestore.DB, *recommend.Engine, error) {
	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, err
	}
	engine := recommend.NewEngine(db)
	if cfg.Recommend.MaxFeatures > 0 {
		engine = engine.WithMaxFeatures(cfg.Recommend.MaxFeatures)
	}
	return db, engine, nil
}

func recommendCmd(g *globals) *cobra.Command {
	var pf paramFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "recommend [username]",
		Short: "Recommend repositories for one user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("recommend", func() error {
				username := g.cfg.Account.Username
				if len(args) == 1 {
					username = args[0]
				}
				db, engine, err := openEngine(g.cfg)
				if err != nil {
					return err
				}
				defer db.Close()

				res, err := engine.Recommend(cmd.Context(), username, pf.params(cmd, g.cfg.Recommend))
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(res)
				}
				renderResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	return cmd
}

func batchCmd(g *globals) *cobra.Command {
	var pf paramFlags
	var users []string
	var metricsAddr string
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Recommend for many users, one JSON line per user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("batch", func() error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				addr := g.cfg.Metrics.Addr
				if metricsAddr != "" {
					addr = metricsAddr
				}
				if srv := metrics.StartServer(addr); srv != nil {
					defer srv.Close()
					logging.Info("metrics_server", map[string]any{"addr": srv.Addr})
				}

				db, engine, err := openEngine(g.cfg)
				if err != nil {
					return err
				}
				defer db.Close()

				listUsers := func(ctx context.Context) ([]string, error) {
					if len(users) > 0 {
						return users, nil
					}
					return db.Owners(ctx)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				opts := jobs.BatchOptions{
					Concurrency:   g.cfg.Batch.Concurrency,
					RatePerSecond: g.cfg.Batch.RatePerSecond,
					Burst:         g.cfg.Batch.Burst,
					OnResult: func(r *recommend.Result) {
						if err := enc.Encode(r); err != nil {
							logging.Error("batch_encode", map[string]any{"username": r.Username, "error": err.Error()})
						}
					},
				}
				p := pf.params(cmd, g.cfg.Recommend)
				if every > 0 {
					err := jobs.RunBatchLoop(ctx, engine, listUsers, p, opts, every)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				list, err := listUsers(ctx)
				if err != nil {
					return err
				}
				_, err = jobs.RunBatch(ctx, engine, list, p, opts)
				return err
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().StringSliceVar(&users, "users", nil, "comma-separated usernames (default: every owner in the store)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address (e.g. :9090)")
	cmd.Flags().DurationVar(&every, "every", 0, "repeat the batch on this interval until interrupted")
	return cmd
}

func importCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a JSON array of repository records into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("import", func() error {
				n, err := importFile(cmd.Context(), g.cfg.Storage.DBPath, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d repositories into %s\n", n, g.cfg.Storage.DBPath)
				return nil
			})
		},
	}
}

func importFile(ctx context.Context, dbPath, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var records []model.RepositoryRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	db, err := sqlitestore.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	if err := db.CreateSchema(ctx); err != nil {
		return 0, err
	}
	for i, r := range records {
		if strings.TrimSpace(r.OwnerUsername) == "" || strings.TrimSpace(r.FullName) == "" {
			return i, fmt.Errorf("record %d: owner_username and full_name are required", i)
		}
		if err := db.PutRepository(ctx, r); err != nil {
			return i, err
		}
	}
	return len(records), nil
}
