// forgectl inspects and edits device state in a Prompt Forge database.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ashureev/prompt-forge/internal/identity"
	"github.com/ashureev/prompt-forge/internal/persistence"
	"github.com/ashureev/prompt-forge/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultDBPath = "./data/forge.db"

var flagDBPath string

// App carries the CLI's dependencies so tests can replace them.
type App struct {
	Out      io.Writer
	Err      io.Writer
	GetEnv   func(string) string
	OpenRepo func(path string) (store.Repository, error)
}

// DefaultApp returns an App wired to the real environment.
func DefaultApp() *App {
	return &App{
		Out:      os.Stdout,
		Err:      os.Stderr,
		GetEnv:   os.Getenv,
		OpenRepo: store.NewSQLite,
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}
	if err := newRootCmd(DefaultApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forgectl",
		Short: "Inspect and edit Prompt Forge device state",
		Long: `forgectl works directly on the server's SQLite database.

A running server keeps active devices in memory and overwrites their
records on the next change, so edit devices that are idle or stop the
server first.

Examples:
  forgectl devices
  forgectl state show dev_0123456789abcdef0123456789abcdef
  forgectl credits grant dev_0123456789abcdef0123456789abcdef 50`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "database path (defaults to DB_PATH or "+defaultDBPath+")")

	cmd.AddCommand(newDevicesCmd(app), newStateCmd(app), newCreditsCmd(app))
	return cmd
}

func newDevicesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices with stored state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRepo(cmd.Context(), app, func(ctx context.Context, repo store.Repository) error {
				ids, err := repo.ListDevices(ctx)
				if err != nil {
					return err
				}
				adapter := persistence.NewAdapter(repo)
				for _, id := range ids {
					s := adapter.Load(ctx, id)
					user := "-"
					if s.CurrentUser != nil {
						user = s.CurrentUser.Email
					}
					fmt.Fprintf(app.Out, "%s\t%s\t%s credits\t%d prompts\n",
						id, user, humanize.Comma(int64(s.Credits)), len(s.SavedPrompts))
				}
				return nil
			})
		},
	}
}

func newStateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or reset a device's state",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <device>",
		Short: "Print a device's state record as JSON",
		Args:  deviceArg(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), app, func(ctx context.Context, repo store.Repository) error {
				data, err := persistence.Encode(persistence.NewAdapter(repo).Load(ctx, args[0]))
				if err != nil {
					return err
				}
				var out bytes.Buffer
				if err := json.Indent(&out, data, "", "  "); err != nil {
					return fmt.Errorf("format state: %w", err)
				}
				out.WriteByte('\n')
				_, err = out.WriteTo(app.Out)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <device>",
		Short: "Delete a device's state record",
		Args:  deviceArg(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), app, func(ctx context.Context, repo store.Repository) error {
				if err := persistence.NewAdapter(repo).Reset(ctx, args[0]); err != nil {
					return fmt.Errorf("reset state: %w", err)
				}
				fmt.Fprintf(app.Out, "Reset %s\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

func newCreditsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Manage device credits",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "grant <device> <amount>",
		Short: "Add credits to a logged-in device",
		Args:  deviceArg(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil || amount <= 0 {
				return fmt.Errorf("invalid amount %q: must be a positive integer", args[1])
			}
			return withRepo(cmd.Context(), app, func(ctx context.Context, repo store.Repository) error {
				adapter := persistence.NewAdapter(repo)
				s := adapter.Load(ctx, args[0])
				if !s.LoggedIn() {
					return fmt.Errorf("device %s has no session", args[0])
				}
				s.Credits += amount
				if err := adapter.Save(ctx, args[0], s); err != nil {
					return fmt.Errorf("save state: %w", err)
				}
				fmt.Fprintf(app.Out, "Granted %s credits to %s (balance %s)\n",
					humanize.Comma(int64(amount)), args[0], humanize.Comma(int64(s.Credits)))
				return nil
			})
		},
	})
	return cmd
}

// deviceArg requires exactly n args, the first being a device id.
func deviceArg(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return err
		}
		if !identity.IsValidDeviceID(args[0]) {
			return fmt.Errorf("invalid device id %q", args[0])
		}
		return nil
	}
}

func dbPath(app *App) string {
	if flagDBPath != "" {
		return flagDBPath
	}
	if p := app.GetEnv("DB_PATH"); p != "" {
		return p
	}
	return defaultDBPath
}

func withRepo(ctx context.Context, app *App, fn func(ctx context.Context, repo store.Repository) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, err := app.OpenRepo(dbPath(app))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			fmt.Fprintf(app.Err, "Warning: failed to close database: %v\n", closeErr)
		}
	}()
	return fn(ctx, repo)
}
