// Package cli implements the bubbleflow command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bubbleflow/pkg/buildinfo"
	"github.com/matzehuels/bubbleflow/pkg/cache"
	"github.com/matzehuels/bubbleflow/pkg/config"
	"github.com/matzehuels/bubbleflow/pkg/observability"
	"github.com/matzehuels/bubbleflow/pkg/pipeline"
	"github.com/matzehuels/bubbleflow/pkg/sink"
	"github.com/matzehuels/bubbleflow/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "bubbleflow"

	// stdinRef reads the dataset from standard input.
	stdinRef = "-"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the TOML configuration file. Empty uses the built-in
	// defaults.
	ConfigPath string

	stdin io.Reader
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		stdin:  os.Stdin,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Bubbleflow draws flows between entities as a radial bubble diagram",
		Long:         `Bubbleflow places ranked entities on concentric rings and draws the quantities flowing between them, with focus, threshold and theme controls for exploring the result.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
	}

	var logFormat string
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.ConfigPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&logFormat, "log-format", logFormatText, "log format: text, json, logfmt")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.SetLogFormat(logFormat)
	}

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.viewsCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// loadConfig reads the configuration named by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if c.ConfigPath != "" {
		c.Logger.Debug("loaded config", "path", c.ConfigPath, "digest", cfg.Digest())
	}
	return cfg, nil
}

// hooks returns observability hooks that log through the CLI logger.
func (c *CLI) hooks() observability.Hooks {
	return observability.NewLogHooks(c.Logger).Hooks()
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(cfg *config.Config, store cache.Cache, keyer cache.Keyer) (*pipeline.Runner, error) {
	env, err := pipeline.NewEnv(cfg)
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Cache.TTLDuration()
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(env, store, keyer, c.Logger)
	r.TTL = ttl
	r.Hooks = c.hooks()
	return r, nil
}

// newCache selects the render cache from the configuration. A Redis URL
// takes precedence over the file cache; noCache disables caching.
func (c *CLI) newCache(cfg *config.Config, noCache bool) (cache.Cache, cache.Keyer, error) {
	keyer := cache.NewDefaultKeyer()
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, cfg.Cache.Prefix)
	}
	if noCache {
		return cache.NewNullCache(), keyer, nil
	}
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedisCache(cache.RedisOptions{URL: cfg.Cache.RedisURL})
		if err != nil {
			return nil, nil, err
		}
		c.Logger.Debug("using redis cache")
		return rc, keyer, nil
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), keyer, nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, nil, err
	}
	return fc, keyer, nil
}

// openSource resolves a dataset reference. HTTP sources share the render
// cache so repeated runs do not refetch the document.
func (c *CLI) openSource(ref string, store cache.Cache, keyer cache.Keyer) (source.Source, error) {
	if ref == stdinRef {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, err
		}
		return &source.BytesSource{Label: "stdin", Data: data}, nil
	}
	src := source.Open(ref)
	if hs, ok := src.(*source.HTTPSource); ok {
		hs.Cache = store
		hs.Keyer = keyer
		hs.TTL = cache.DefaultDatasetTTL
		hs.Logger = c.Logger
		hs.Hooks = c.hooks()
	}
	return src, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/bubbleflow/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// isURL reports whether ref is fetched over HTTP.
func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
// If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{sink.FormatSVG}
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
