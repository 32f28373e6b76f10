package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"activitylog/internal/audit/service"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/timerange"
)

type queryFunc func(ctx context.Context, svc *service.Service) ([]audit.Event, error)

func (a *app) query(cmd *cobra.Command, fn queryFunc) error {
	return a.withEnv(cmd, func(ctx context.Context, e *env) error {
		events, err := fn(ctx, e.service())
		if err != nil {
			return err
		}
		return a.print(events)
	})
}

func (a *app) allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Print every event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.query(cmd, func(ctx context.Context, svc *service.Service) ([]audit.Event, error) {
				return svc.AllLogs(ctx)
			})
		},
	}
}

func (a *app) recentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recent events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.query(cmd, func(ctx context.Context, svc *service.Service) ([]audit.Event, error) {
				return svc.RecentLogs(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "number of events")
	return cmd
}

func (a *app) userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user EMAIL",
		Short: "Print events by actor email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd, func(ctx context.Context, svc *service.Service) ([]audit.Event, error) {
				return svc.LogsByUser(ctx, args[0])
			})
		},
	}
}

func (a *app) actionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "action ACTION",
		Short:   "Print events with an action code",
		Example: "  auditctl action LOGIN_FAILED",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd, func(ctx context.Context, svc *service.Service) ([]audit.Event, error) {
				return svc.LogsByAction(ctx, args[0])
			})
		},
	}
}

func (a *app) roleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role ROLE",
		Short: "Print events by actor role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd, func(ctx context.Context, svc *service.Service) ([]audit.Event, error) {
				return svc.LogsByRole(ctx, args[0])
			})
		},
	}
}

func (a *app) rangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "range [today|7days|30days|90days]",
		Short:     "Print events within a relative time window",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"today", "7days", "30days", "90days"},
		RunE: func(cmd *cobra.Command, args []string) error {
			token := string(timerange.Default)
			if len(args) == 1 {
				token = args[0]
			}
			return a.query(cmd, func(ctx context.Context, svc *service.Service) ([]audit.Event, error) {
				return svc.LogsByDateRange(ctx, token)
			})
		},
	}
}

func (a *app) filterCmd() *cobra.Command {
	var f service.Filters
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print events matching role, action, status and time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.query(cmd, func(ctx context.Context, svc *service.Service) ([]audit.Event, error) {
				return svc.LogsWithFilters(ctx, f)
			})
		},
	}
	cmd.Flags().StringVar(&f.Role, "role", service.AllUsers, "actor role")
	cmd.Flags().StringVar(&f.Action, "action", service.AllActions, "action code")
	cmd.Flags().StringVar(&f.Status, "status", service.AllStatus, "success or failed")
	cmd.Flags().StringVar(&f.DateRange, "range", string(timerange.Default), "today, 7days, 30days or 90days")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [TERM...]",
		Short: "Case-insensitive search over email, name, action and details",
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			return a.query(cmd, func(ctx context.Context, svc *service.Service) ([]audit.Event, error) {
				return svc.SearchLogs(ctx, term)
			})
		},
	}
}
