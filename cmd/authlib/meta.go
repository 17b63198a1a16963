// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/authlib/authlib/internal/auth"
)

func newMetaCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Read and write per-user metadata",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <user-id> <key> <json-value>",
		Short: "Store a JSON value under key",
		Example: `  authlib meta set alice plan '"pro"'
  authlib meta set alice prefs '{"theme":"dark"}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.output); err != nil {
				return err
			}
			var value any
			if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
				return printResult(cmd.OutOrStdout(), opts.output,
					auth.Failure(auth.CodeInvalidFormat, "metadata value must be valid JSON"))
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app) auth.Result {
				return a.svc.SetMetadata(ctx, args[0], args[1], value)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <user-id> <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) auth.Result {
				return a.svc.GetMetadata(ctx, args[0], args[1])
			})
		},
	})

	return cmd
}
