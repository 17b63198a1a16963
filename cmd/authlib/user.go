// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/authlib/authlib/internal/auth"
)

func newUserCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Add or delete users",
	}

	var password string
	add := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Register a user with a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) auth.Result {
				return a.svc.AddUser(ctx, args[0], password)
			})
		},
	}
	add.Flags().StringVar(&password, "password", "", "password for the new user")

	cmd.AddCommand(add)
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user with its reset token and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) auth.Result {
				return a.svc.DeleteUser(ctx, args[0])
			})
		},
	})

	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Check a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) auth.Result {
				return a.svc.Login(ctx, args[0], password)
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to check")
	return cmd
}
