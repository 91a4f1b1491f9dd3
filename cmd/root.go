package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/agentic-research/manifestdb/api"
	"github.com/agentic-research/manifestdb/internal/cismapper"
	"github.com/agentic-research/manifestdb/internal/config"
	"github.com/agentic-research/manifestdb/internal/logging"
	"github.com/spf13/cobra"
)

// kinds are the built-in dataset kinds selectable with --kind.
var kinds = map[string]*api.Kind{
	cismapper.Kind.Name: cismapper.Kind,
}

// app carries flag values and the loaded configuration for one command run.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	kind   *api.Kind

	envFile    string
	manifest   string
	kindName   string
	kindFile   string
	logLevel   string
	logFormat  string
	tempDir    string
	maxReaders int
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "manifestdb",
		Short:             "Compile dataset manifests into queryable SQLite stores",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.manifest, "manifest", "m", "", "Manifest path when not given as an argument (env MANIFESTDB_MANIFEST)")
	pf.StringVar(&a.envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	pf.StringVarP(&a.kindName, "kind", "k", cismapper.Kind.Name, "Built-in dataset kind ("+strings.Join(kindNames(), ", ")+")")
	pf.StringVar(&a.kindFile, "kind-file", "", "Path to a JSON dataset kind descriptor (overrides --kind)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text, json (env LOG_FORMAT)")
	pf.StringVar(&a.tempDir, "temp-dir", "", "Directory for compiled stores (env MANIFESTDB_TEMP_DIR)")
	pf.IntVar(&a.maxReaders, "max-readers", 0, "Concurrent read connections per store (env MANIFESTDB_MAX_READERS)")

	root.AddCommand(
		a.compileCmd(),
		a.categoriesCmd(),
		a.listingsCmd(),
		a.detailCmd(),
		a.watchCmd(),
	)
	return root
}

func kindNames() []string {
	names := make([]string, 0, len(kinds))
	for n := range kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// setup loads configuration, applies flag overrides and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.LoadWithDotenv(files...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if flags.Changed("temp-dir") {
		cfg.Store.TempDir = a.tempDir
	}
	if flags.Changed("max-readers") {
		cfg.Store.MaxReaders = a.maxReaders
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	a.kind, err = a.resolveKind()
	return err
}

func (a *app) resolveKind() (*api.Kind, error) {
	if a.kindFile == "" {
		k, ok := kinds[a.kindName]
		if !ok {
			return nil, fmt.Errorf("unknown kind %q (known: %s)", a.kindName, strings.Join(kindNames(), ", "))
		}
		return k, nil
	}

	data, err := os.ReadFile(a.kindFile)
	if err != nil {
		return nil, fmt.Errorf("read kind file: %w", err)
	}
	var k api.Kind
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse kind file %s: %w", a.kindFile, err)
	}
	if err := k.Validate(); err != nil {
		return nil, fmt.Errorf("kind file %s: %w", a.kindFile, err)
	}
	return &k, nil
}

// manifestPath picks the manifest from the positional argument, then
// --manifest, then MANIFESTDB_MANIFEST.
func (a *app) manifestPath(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if a.manifest != "" {
		return a.manifest, nil
	}
	if a.cfg.Store.Manifest != "" {
		return a.cfg.Store.Manifest, nil
	}
	return "", fmt.Errorf("no manifest given: pass a path, use --manifest or set MANIFESTDB_MANIFEST")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
