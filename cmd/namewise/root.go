package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"namewise/internal/analysis"
	"namewise/internal/config"
	"namewise/internal/credentials"
	"namewise/internal/log"
)

// app carries the state shared by every subcommand
type app struct {
	cfgFile string
	debug   bool
	cfg     *config.Config
	logger  *log.Logger

	fs       afero.Fs
	creds    credentials.Store
	analyzer analysis.Analyzer
}

// Option overrides a collaborator of the root command
type Option func(*app)

// WithFs runs every command against fs instead of the OS filesystem
func WithFs(fs afero.Fs) Option {
	return func(a *app) { a.fs = fs }
}

// WithConfig skips loading the config file
func WithConfig(cfg *config.Config) Option {
	return func(a *app) { a.cfg = cfg }
}

// WithCredentials replaces the environment credential lookup
func WithCredentials(creds credentials.Store) Option {
	return func(a *app) { a.creds = creds }
}

// WithAnalyzer replaces the remote vision client
func WithAnalyzer(analyzer analysis.Analyzer) Option {
	return func(a *app) { a.analyzer = analyzer }
}

// NewRootCmd creates the root command
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "namewise",
		Short: "Give files with meaningless names descriptive ones",
		Long: drawLogo() + `

Namewise finds files named like IMG_4821.jpg or untitled (3).txt, asks a
vision model what they contain, and lets you review the suggested names
before anything is renamed.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/namewise/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newScanCmd(a))
	rootCmd.AddCommand(newSuggestCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newUndoCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	var loadErr error
	if a.cfg == nil {
		if a.cfgFile != "" {
			a.cfg, loadErr = config.LoadConfigFile(a.cfgFile)
		} else {
			a.cfg, loadErr = config.LoadConfig()
		}
		if loadErr != nil {
			errOut := cmd.ErrOrStderr()
			fmt.Fprintln(errOut, warningText(fmt.Sprintf("Warning: %v", loadErr)))
			fmt.Fprintln(errOut, dimText("Using default settings. Run 'namewise config init' to create a config file."))
			a.cfg = config.New()
		}
	}

	opts := []log.Option{log.WithOutput(cmd.ErrOrStderr()), log.WithLevel(a.cfg.Log.Level)}
	if a.cfg.Log.JSON {
		opts = append(opts, log.WithJSON())
	}
	if a.cfg.Log.File != "" {
		opts = append(opts, log.WithFile(a.cfg.Log.File))
	}
	if a.debug {
		opts = append(opts, log.WithLevel("debug"))
	}
	log.Configure(opts...)
	log.SetDebug(a.debug)
	a.logger = log.Default()
	if loadErr != nil {
		log.LogWithError(loadErr).Warn("Config file ignored, using defaults")
	}
	return nil
}
