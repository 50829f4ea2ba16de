// Package cli implements the pipext command-line interface.
//
// The main command is search, which looks up a package on PyPI and prints a
// formatted metadata report. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// All status output (logs, spinner, prompts) goes to stderr; stdout carries
// only the rendered metadata report so it stays pipe-friendly.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pipext/pipext/internal/config"
	"github.com/pipext/pipext/pkg/buildinfo"
	"github.com/pipext/pipext/pkg/registry"
	"github.com/pipext/pipext/pkg/registry/github"
	"github.com/pipext/pipext/pkg/registry/pypi"
	"github.com/pipext/pipext/pkg/report"
)

// appName is the application name used for directories and display.
const appName = "pipext"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cfg      config.Config
	cfgPath  string
	provider report.Provider // overrides newProvider when set (tests)
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "pipext reports package metadata from PyPI",
		Long:          `pipext is a CLI tool for looking up Python package metadata (version, author, links, dependencies) from the PyPI index and printing it as a readable report.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.cfgPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (default $XDG_CONFIG_HOME/pipext/config.toml)")

	root.AddCommand(c.searchCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newProvider builds the metadata provider from the loaded configuration:
// a PyPI client with the GitHub source-manifest fallback wired in.
func (c *CLI) newProvider() report.Provider {
	if c.provider != nil {
		return c.provider
	}

	httpClient := registry.NewClient(c.cfg.TimeoutSeconds, map[string]string{
		"User-Agent": appName + "/" + buildinfo.Version,
	})
	source := github.NewClient(httpClient, c.cfg.GitHubAPIURL, c.cfg.GitHubRawURL, c.cfg.GitHubToken)
	return pypi.NewClient(httpClient, c.cfg.IndexURL, source, func(msg string, args ...any) {
		c.Logger.Warnf(msg, args...)
	})
}
