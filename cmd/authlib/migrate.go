// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authlib/authlib/internal/config"
	"github.com/authlib/authlib/internal/datastore"
	"github.com/authlib/authlib/internal/store"
)

// migrator is the subset of *store.Migrator the commands use.
type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(dsn string) (migrator, error) {
	return store.NewMigrator(dsn)
}

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply, revert, or inspect the PostgreSQL schema migrations.
Requires datastore.type postgres or database.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withMigrator(cmd, func(m migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return opts.printStatus(cmd, m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert all migrations (drops all credential data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withMigrator(cmd, func(m migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				return opts.printStatus(cmd, m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withMigrator(cmd, func(m migrator) error {
				return opts.printStatus(cmd, m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied after fixing a dirty database by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return opts.withMigrator(cmd, func(m migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				return opts.printStatus(cmd, m)
			})
		},
	})

	return cmd
}

// withMigrator opens a migrator for the configured database and closes it
// after fn.
func (o *globalOptions) withMigrator(cmd *cobra.Command, fn func(m migrator) error) (err error) {
	cfg, logger, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	switch cfg.Datastore.Type {
	case config.DatastorePostgres, config.DatastoreDatabase:
	default:
		return oops.Code("CONFIG_INVALID").
			With("type", cfg.Datastore.Type).
			Errorf("migrations require a postgres datastore, got %q", cfg.Datastore.Type)
	}

	m, err := newMigrator(datastore.PostgresDSN(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	return fn(m)
}

func (o *globalOptions) printStatus(cmd *cobra.Command, m migrator) error {
	status, err := m.Status()
	if err != nil {
		return err
	}
	return writeValue(cmd.OutOrStdout(), o.output, status)
}

// parseForceVersion reads a leading integer from s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer: %q", s)
	}
	return version, nil
}
