// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/authlib/authlib/internal/auth"
)

func newResetCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Run the password reset flow",
		Long: `Issue, check, and redeem password reset tokens. A token is printed
once by "reset request" and cannot be recovered afterwards.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "request <user-id>",
		Short: "Issue a reset token, replacing any earlier one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) auth.Result {
				return a.svc.RequestPasswordReset(ctx, args[0])
			})
		},
	})

	var verifyToken string
	verify := &cobra.Command{
		Use:   "verify <user-id>",
		Short: "Check a reset token without using it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) auth.Result {
				return a.svc.VerifyResetToken(ctx, args[0], verifyToken)
			})
		},
	}
	verify.Flags().StringVar(&verifyToken, "token", "", "reset token")
	cmd.AddCommand(verify)

	var completeToken, password string
	complete := &cobra.Command{
		Use:   "complete <user-id>",
		Short: "Set a new password using a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) auth.Result {
				return a.svc.ResetPassword(ctx, args[0], completeToken, password)
			})
		},
	}
	complete.Flags().StringVar(&completeToken, "token", "", "reset token")
	complete.Flags().StringVar(&password, "password", "", "new password")
	cmd.AddCommand(complete)

	return cmd
}
