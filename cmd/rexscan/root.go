package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/compiler"
	"rgehrsitz/rexscan/pkg/config"
	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/resource"
	"rgehrsitz/rexscan/pkg/runtime"
	"rgehrsitz/rexscan/pkg/store"
)

// StoreFactory opens the store named by the configuration.
type StoreFactory interface {
	NewStore(ctx context.Context, opts store.Options) (store.Store, error)
}

// RealStoreFactory implements StoreFactory
type RealStoreFactory struct{}

func (f *RealStoreFactory) NewStore(ctx context.Context, opts store.Options) (store.Store, error) {
	return store.Open(ctx, opts)
}

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	noColor bool
	cfg     *config.Config
	stores  StoreFactory
}

func newRootCmd(stores StoreFactory) *cobra.Command {
	a := &app{v: config.New(), stores: stores}

	root := &cobra.Command{
		Use:           "rexscan",
		Short:         "Score cloud resource inventories against security rules.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default searches ./rexscan.*, $HOME/.rexscan, /etc/rexscan)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-output", "console", "log output (console, json, file)")
	flags.String("store", "sqlite", "store driver (sqlite, redis)")
	flags.String("db", "rexscan.db", "SQLite database path")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("rules", "", "rule pack file (YAML or JSON); overrides stored rules")
	flags.Int("workers", 0, "parallel rule evaluations (0 uses GOMAXPROCS)")

	for key, flag := range map[string]string{
		"logging.level":       "log-level",
		"logging.output":      "log-output",
		"store.driver":        "store",
		"store.sqlite.path":   "db",
		"store.redis.address": "redis-addr",
		"rules.file":          "rules",
		"engine.workers":      "workers",
	} {
		cobra.CheckErr(a.v.BindPFlag(key, flags.Lookup(flag)))
	}

	root.AddCommand(
		a.newScanCmd(),
		a.newIngestCmd(),
		a.newServeCmd(),
		a.newRulesCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Read(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if err := logging.ConfigureLogger(cfg.LogLevel, cfg.LogDestination); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	if a.noColor {
		color.NoColor = true
	}
	a.cfg = cfg
	return nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	return a.stores.NewStore(ctx, store.Options{
		Driver:        a.cfg.StoreDriver,
		SQLitePath:    a.cfg.SQLitePath,
		RedisAddress:  a.cfg.RedisAddress,
		RedisPassword: a.cfg.RedisPassword,
		RedisDatabase: a.cfg.RedisDB,
	})
}

// loadCatalog compiles the rules from the configured file, else the rules
// kept in st, else the built-in pack.
func (a *app) loadCatalog(ctx context.Context, st store.Store) (*catalog.Catalog, error) {
	var (
		defs   []catalog.RuleDefinition
		source string
		err    error
	)
	switch {
	case a.cfg.RulesFile != "":
		source = a.cfg.RulesFile
		defs, err = catalog.ReadDefinitions(a.cfg.RulesFile)
	case st != nil:
		source = "store"
		defs, err = st.Rules(ctx)
	}
	if err != nil {
		return nil, readRulesError(source, err)
	}
	if len(defs) == 0 {
		source = "built-in"
		defs = catalog.DefaultDefinitions()
	}

	cat, err := catalog.Load(defs)
	if err != nil {
		return nil, loadRulesError(source, err)
	}
	logging.Logger.Debug().Str("source", source).Int("rules", cat.Len()).Msg("Using rule catalog")
	return cat, nil
}

// readRulesError tags a failure to read a rule pack. PARSE means the file
// was read but could not be decoded.
func readRulesError(source string, err error) error {
	errType := logging.ErrorTypeCatalog
	var pathErr *fs.PathError
	if source != "store" && !errors.As(err, &pathErr) {
		errType = logging.ErrorTypeParse
	}
	return logging.NewError(errType, "failed to read rules", err, map[string]interface{}{"source": source})
}

// loadRulesError tags a failure to build the catalog. COMPILE means a rule
// condition did not tokenize or parse.
func loadRulesError(source string, err error) error {
	var (
		lexErr    *compiler.LexError
		syntaxErr *compiler.SyntaxError
	)
	errType := logging.ErrorTypeCatalog
	if errors.As(err, &lexErr) || errors.As(err, &syntaxErr) {
		errType = logging.ErrorTypeCompile
	}
	return logging.NewError(errType, "failed to load rules", err, map[string]interface{}{"source": source})
}

func (a *app) newEngine(cat *catalog.Catalog) *runtime.Engine {
	return runtime.NewEngine(cat, a.cfg.Workers)
}

func (a *app) newIngester() (*resource.Ingester, error) {
	queries := make(map[resource.Category]string, len(a.cfg.IngestQueries))
	for name, q := range a.cfg.IngestQueries {
		c, err := resource.ParseCategory(name)
		if err != nil {
			return nil, logging.NewError(logging.ErrorTypeConfig, "invalid ingest query category", err,
				map[string]interface{}{"category": name})
		}
		queries[c] = q
	}
	ing, err := resource.NewIngester(queries)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig, "invalid ingest query", err, nil)
	}
	return ing, nil
}
