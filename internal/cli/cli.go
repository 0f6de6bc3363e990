package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/orderproxy/internal/app"
	"github.com/Additional-Code/orderproxy/internal/entity"
	"github.com/Additional-Code/orderproxy/internal/migration"
	"github.com/Additional-Code/orderproxy/internal/repository/audit"
	serviceorder "github.com/Additional-Code/orderproxy/internal/service/order"
	"github.com/Additional-Code/orderproxy/pkg/errorbank"
)

const stopTimeout = 10 * time.Second

// NewRootCommand builds the root orderproxy CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "orderproxy",
		Short:         "Shopify orders proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newAuditCmd())
	root.AddCommand(newWorkerCmd())

	return root
}

// Execute runs the orderproxy CLI until it finishes or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run", "serve"},
		Short:   "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), fx.New(app.Module))
		},
	}
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch upstream orders once and print the response body",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")

			var svc *serviceorder.Service
			opts := fx.Options(app.Core, fx.Populate(&svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				var (
					body any
					err  error
				)
				if raw || svc.Passthrough() {
					body, err = svc.Raw(ctx)
				} else {
					body, err = svc.List(ctx)
				}
				if err != nil {
					appErr := errorbank.From(err)
					_ = writeJSON(cmd.OutOrStdout(), map[string]string{"detail": appErr.Message()})
					return appErr
				}
				return writeJSON(cmd.OutOrStdout(), body)
			})
		},
	}
	cmd.Flags().Bool("raw", false, "Print the upstream body without projection")

	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run fetch audit migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, app.Storage, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			var mig *migration.Migrator
			opts := fx.Options(app.Core, app.Storage, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded upstream fetches",
	}

	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent fetch audits",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			var repo *audit.Repository
			opts := fx.Options(app.Core, app.Storage, fx.Populate(&repo))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				audits, err := repo.ListRecent(ctx, limit)
				if err != nil {
					return err
				}
				return writeAudits(cmd.OutOrStdout(), audits)
			})
		},
	}
	tailCmd.Flags().Int("limit", audit.DefaultListLimit, "Number of audits to print")

	cmd.AddCommand(tailCmd)
	return cmd
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume fetch events and record audits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), fx.New(app.Worker))
		},
	})
	return cmd
}

func runUntilDone(ctx context.Context, application *fx.App) error {
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeAudits(w io.Writer, audits []entity.FetchAudit) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFETCHED AT\tMODE\tSTATUS\tORDERS\tDURATION\tERROR")
	for _, a := range audits {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%dms\t%s\n",
			a.ID,
			a.FetchedAt.UTC().Format(time.RFC3339),
			a.Mode,
			a.UpstreamStatus,
			a.OrderCount,
			a.DurationMillis,
			a.Error,
		)
	}
	return tw.Flush()
}
