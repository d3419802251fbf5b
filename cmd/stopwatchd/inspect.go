package main

import (
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every stored stopwatch as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			all, err := svc.List(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), all)
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored stopwatch as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			sw, err := svc.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sw)
		},
	}
}
