package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	jwttoken "activitylog/internal/jwt_token"
	"activitylog/pkg/email"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/recorder"
)

func (a *app) recordCmd() *cobra.Command {
	var (
		actorEmail, name, role string
		action, details        string
		failed                 bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append one event, e.g. to backfill activity from another system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEnv(cmd, func(ctx context.Context, e *env) error {
				if name == "" {
					name = email.DisplayName(actorEmail)
				}
				rec := recorder.New(e.store.Store, recorder.WithLogger(e.logger))
				status := audit.StatusSuccess
				if failed {
					status = audit.StatusFailed
				}
				event := rec.Record(ctx, actorEmail, name, role, action, details, status)
				if event.ID == 0 {
					return errors.New("event was not stored; see log output")
				}
				return a.print(event)
			})
		},
	}
	cmd.Flags().StringVar(&actorEmail, "email", "", "actor email")
	cmd.Flags().StringVar(&name, "name", "", "actor name (derived from the email when omitted)")
	cmd.Flags().StringVar(&role, "role", "", "actor role")
	cmd.Flags().StringVar(&action, "action", "", "action code, e.g. USER_LOGIN")
	cmd.Flags().StringVar(&details, "details", "", "free-text details")
	cmd.Flags().BoolVar(&failed, "failed", false, "record a failed outcome")
	for _, f := range []string{"email", "role", "action"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) tokenCmd() *cobra.Command {
	var (
		operator, name string
		ttl            time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.configFile)
			if err != nil {
				return err
			}
			svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
			token, err := svc.GenerateAccessToken(operator, name, cfg.Auth.AdminRole, ttl)
			if err != nil {
				return err
			}
			return a.print(map[string]string{
				"access_token": token,
				"token_type":   "Bearer",
				"expires_in":   ttl.String(),
			})
		},
	}
	cmd.Flags().StringVar(&operator, "email", "", "operator email")
	cmd.Flags().StringVar(&name, "name", "Operator", "operator name")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
