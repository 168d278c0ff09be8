package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"familyeats/backend/internal/api/handler"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/moderation"
	"familyeats/backend/internal/storage"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var roles = []string{models.RoleMember, models.RoleModerator, models.RoleAdmin, models.RoleService}

func newQueueCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Inspect and resolve the moderation queue"}

	var limit, priority int
	list := &cobra.Command{
		Use:   "list",
		Short: "List open queue entries, most urgent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				entries, err := e.svc.Queue.List(ctx, moderation.ListInput{Limit: limit, Priority: priority})
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tPRIORITY\tSTATUS\tCONTENT\tASSIGNED\tREASON")
				for _, q := range entries {
					assigned := "-"
					if q.AssignedTo != nil {
						assigned = *q.AssignedTo
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s/%s\t%s\t%s\n", q.ID, q.Priority, q.Status, q.ContentType, q.ContentID, assigned, q.Reason)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "maximum entries (default 50)")
	list.Flags().IntVar(&priority, "priority", 0, "only this priority")

	var notes, action, reviewer string
	resolve := &cobra.Command{
		Use:   "resolve <queue-id> <approve|reject|remove|request_more_info>",
		Short: "Record a verdict on a queue entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				d, err := e.svc.Decisions.Resolve(ctx, moderation.ResolveInput{
					QueueID:     args[0],
					Verdict:     args[1],
					ReviewerID:  reviewer,
					Notes:       notes,
					ActionTaken: action,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "decision %s recorded for %s/%s\n", d.ID, d.ContentType, d.ContentID)
				return nil
			})
		},
	}
	resolve.Flags().StringVar(&notes, "notes", "", "reviewer notes")
	resolve.Flags().StringVar(&action, "action", "", "content status to apply (open, flagged, removed, approved)")
	resolve.Flags().StringVar(&reviewer, "reviewer", "admin-cli", "reviewer id recorded on the decision")

	history := &cobra.Command{
		Use:   "history <content-type> <content-id>",
		Short: "Show every decision recorded on a content item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				decisions, err := e.svc.Decisions.History(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printDecisions(cmd.OutOrStdout(), decisions)
			})
		},
	}

	cmd.AddCommand(list, resolve, history)
	return cmd
}

func newTrustCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "trust", Short: "Maintain trust scores"}

	recompute := &cobra.Command{
		Use:   "recompute <user-id>",
		Short: "Recompute one user's trust score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				score, err := e.svc.Trust.Recompute(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: trust %d, reputation %d, %s\n",
					score.UserID, score.TrustScore, score.ReputationPoints, score.AccountStatus)
				return nil
			})
		},
	}

	var since time.Duration
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute every user with moderation activity in the window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				n, err := e.svc.Trust.Reconcile(ctx, time.Now().Add(-since))
				fmt.Fprintf(cmd.OutOrStdout(), "%d trust scores recomputed\n", n)
				return err
			})
		},
	}
	reconcile.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look for activity")

	cmd.AddCommand(recompute, reconcile)
	return cmd
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	role := &cobra.Command{
		Use:   "role <user-id> <member|moderator|admin|service>",
		Short: "Set a user's role, creating the user if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(roles, args[1]) {
				return errors.Errorf("unknown role %q", args[1])
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				user, err := e.svc.Store.GetUser(ctx, args[0])
				switch {
				case errors.Is(err, storage.ErrNotFound):
					user = &models.User{ID: args[0]}
				case err != nil:
					return err
				}
				user.Role = args[1]
				if err := e.svc.Store.SaveUser(ctx, user); err != nil {
					return errors.Wrap(err, "save user")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.ID, user.Role)
				return nil
			})
		},
	}

	telegram := &cobra.Command{
		Use:   "telegram <user-id> <chat-id>",
		Short: "Link an admin's Telegram chat for alerts (0 unlinks)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return errors.Errorf("invalid chat id %q", args[1])
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				user, err := e.svc.Store.GetUser(ctx, args[0])
				if err != nil {
					return errors.Wrapf(err, "load user %s", args[0])
				}
				user.TelegramChatID = nil
				if chatID != 0 {
					user.TelegramChatID = &chatID
				}
				if err := e.svc.Store.SaveUser(ctx, user); err != nil {
					return errors.Wrap(err, "save user")
				}
				if user.Role != models.RoleAdmin {
					fmt.Fprintf(cmd.ErrOrStderr(), "note: %s is %s; only admins receive alerts\n", user.ID, user.Role)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s telegram chat set to %d\n", user.ID, chatID)
				return nil
			})
		},
	}
	cmd.AddCommand(role, telegram)
	return cmd
}

func newTokenCommand() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a development token with the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(roles, role) {
				return errors.Errorf("unknown role %q", role)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tok, err := handler.IssueToken(cfg.Auth, args[0], role, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", models.RoleMember, "role claim")
	return cmd
}

func printDecisions(out io.Writer, decisions []models.ModerationDecision) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tREVIEWER\tVERDICT\tACTION\tQUEUE\tNOTES")
	for _, d := range decisions {
		action := d.ActionTaken
		if action == "" {
			action = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.CreatedAt.Format(time.RFC3339), d.ReviewerID, d.Verdict, action, d.QueueID, d.Notes)
	}
	return w.Flush()
}
