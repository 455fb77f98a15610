package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskboard/internal/board"
	"taskboard/internal/forms"
	"taskboard/internal/gateway"
	"taskboard/internal/models"
	"taskboard/internal/session"
)

func newBoardCommand() *cobra.Command {
	var (
		email    string
		password string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print your task board",
		Long: `Sign in and print the four task columns.

Credentials come from --email/--password or TASKBOARD_EMAIL and
TASKBOARD_PASSWORD. With --watch the board is printed again after every
change until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, email, password, watch)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (default $TASKBOARD_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $TASKBOARD_PASSWORD)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep printing the board as it changes")
	return cmd
}

func runBoard(cmd *cobra.Command, email, password string, watch bool) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = env.log.Sync() }()
	if email == "" {
		email = env.cfg.Email
	}
	if password == "" {
		password = env.cfg.Password
	}

	validator, err := forms.New(env.cfg.Language)
	if err != nil {
		return fmt.Errorf("load form messages: %w", err)
	}
	if errs := validator.Check(forms.Login{Email: email, Password: password}); !errs.OK() {
		return fmt.Errorf("cannot sign in: %s", describe(errs))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.New(env.client, env.log)
	defer store.Close()
	if err := store.Login(ctx, gateway.Credentials{Email: email, Password: password}); err != nil {
		return err
	}
	defer store.Logout(context.Background())
	user := store.User()

	b := board.New(env.client, env.log)
	if watch {
		if err := b.Watch(ctx, user.ID); err != nil {
			return err
		}
		defer func() {
			if err := b.Close(); err != nil {
				env.log.Warn("closing board failed", zap.Error(err))
			}
		}()
	}
	if err := b.Load(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := renderBoard(out, b.Columns()); err != nil {
		return err
	}
	if stats, err := env.client.TaskStats(ctx); err == nil {
		fmt.Fprintln(out, summary(stats))
	} else {
		env.log.Warn("task stats unavailable", zap.Error(err))
	}
	if !watch {
		return nil
	}

	changes, unsubscribe := b.Changes()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			fmt.Fprintln(out)
			if err := renderBoard(out, b.Columns()); err != nil {
				return err
			}
		}
	}
}

// describe flattens field errors into one line, sorted by field.
func describe(errs forms.FieldErrors) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+errs[f])
	}
	return strings.Join(parts, "; ")
}

// renderBoard prints one section per column with a row per task.
func renderBoard(w io.Writer, cols []board.Column) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, col := range cols {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s (%d)\n", strings.ToUpper(string(col.Status)), len(col.Tasks))
		if len(col.Tasks) == 0 {
			fmt.Fprintln(tw, "  -")
			continue
		}
		for _, t := range col.Tasks {
			fmt.Fprintf(tw, "  %s\t%s\t%s\tdue %s\t%s\n", t.Title, t.Priority, t.Category, t.DueDate, progressLabel(t.Progress()))
		}
	}
	return tw.Flush()
}

func progressLabel(p models.Progress) string {
	if p.Total > 0 && p.Done() {
		return p.String() + " done"
	}
	return p.String()
}

func summary(stats gateway.TaskStats) string {
	parts := make([]string, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		parts = append(parts, fmt.Sprintf("%s %d", s, stats[string(s)]))
	}
	return fmt.Sprintf("Total %d: %s", stats["total"], strings.Join(parts, ", "))
}
