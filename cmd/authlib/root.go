// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authlib/authlib/internal/auth"
	"github.com/authlib/authlib/internal/config"
	"github.com/authlib/authlib/internal/datastore"
	"github.com/authlib/authlib/internal/logging"
	"github.com/authlib/authlib/internal/xdg"
)

// Deps contains injectable dependencies for the CLI.
// Nil fields use their default implementations.
type Deps struct {
	// Registry builds the configured store.
	// Default: datastore.NewDefaultRegistry
	Registry *datastore.Registry

	// Environ supplies AUTHLIB_* overrides.
	// Default: os.Environ
	Environ func() []string

	// ConfigFinder supplies the config path when --config is not given.
	// Default: xdg.FindConfig
	ConfigFinder func() string

	// Ready receives the bound address once serve is listening.
	// Default: nil (not notified)
	Ready chan<- string
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	configFile    string
	datastoreType string
	logLevel      string
	logFormat     string
	output        string
	deps          *Deps
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"datastore-type": "datastore.type",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"addr":           "server.addr",
}

// NewRootCmd creates the root command for the authlib CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = &Deps{}
	}
	if deps.Registry == nil {
		deps.Registry = datastore.NewDefaultRegistry()
	}
	if deps.ConfigFinder == nil {
		deps.ConfigFinder = xdg.FindConfig
	}
	opts := &globalOptions{deps: deps}

	cmd := &cobra.Command{
		Use:   "authlib",
		Short: "AuthLib - password authentication and reset",
		Long: `AuthLib manages salted password credentials and password reset
tokens against an in-memory, PostgreSQL, or MongoDB store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/authlib/config.yaml when present)")
	flags.StringVar(&opts.datastoreType, "datastore-type", "", "datastore type (memory, postgres, database, mongo)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (json or text)")
	flags.StringVarP(&opts.output, "output", "o", formatJSON, "output format (json or yaml)")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newUserCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newResetCmd(opts))
	cmd.AddCommand(newMetaCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

// loadConfig resolves configuration and builds the logger. The logger
// writes to the command's stderr.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	if err := checkFormat(o.output); err != nil {
		return nil, nil, err
	}
	path := o.configFile
	if path == "" {
		path = o.deps.ConfigFinder()
	}
	cfg, err := config.Load(config.LoadOptions{
		Path:     path,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys,
		Environ:  o.deps.Environ,
	})
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Setup("authlib", version, cfg.Log.Format, level, cmd.ErrOrStderr())
	return cfg, logger, nil
}

// app is an opened store and the service on top of it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  datastore.Store
	svc    *auth.Service
}

// open loads configuration and connects to the configured store. Callers
// must Close the returned app.
func (o *globalOptions) open(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, logger, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	hasher, err := auth.NewHasher(cfg.Hasher.Algorithm)
	if err != nil {
		return nil, err
	}

	store, err := o.deps.Registry.Create(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	svc, err := auth.NewService(store,
		auth.WithHasher(hasher),
		auth.WithLogger(logger),
		auth.WithTokenTTL(cfg.TokenTTL()),
	)
	if err != nil {
		_ = store.Close() //nolint:errcheck // construction error takes precedence
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, svc: svc}, nil
}

// Close releases the store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close datastore", "error", err)
	}
}

// withApp opens the app, runs fn, and prints the Result it returns.
func (o *globalOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) auth.Result) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := o.open(ctx, cmd)
	if err != nil {
		return oops.With("command", cmd.CommandPath()).Wrap(err)
	}
	defer a.Close()

	return printResult(cmd.OutOrStdout(), o.output, fn(ctx, a))
}
