package cli

import (
	"context"
	"io"

	"github.com/dmitrijs2005/securebank/internal/buildinfo"
	"github.com/dmitrijs2005/securebank/internal/client/config"
	"github.com/spf13/cobra"
)

// appFactory builds the App for a command. It is replaced in tests.
var appFactory = func(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	return NewApp(ctx, cfg, in, out)
}

// NewRootCmd builds the securebank command tree. Running it without a
// subcommand opens the interactive shell.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "securebank",
		Short:         "SecureBank offline-first banking client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(ctx context.Context, a *App) error {
			a.Run(ctx)
			return nil
		}),
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "enroll",
			Short: "Set or change the sign-in passcode",
			Args:  cobra.NoArgs,
			RunE:  withApp(func(ctx context.Context, a *App) error { return a.Enroll(ctx) }),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show connectivity, sign-in and cache status",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *App) error {
				if a.monitor != nil {
					a.monitor.Check(ctx)
				}
				return a.Status(ctx)
			}),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Remove the passcode, security state and cached data",
			Args:  cobra.NoArgs,
			RunE:  withApp(func(ctx context.Context, a *App) error { return a.Reset(ctx) }),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				buildinfo.PrintBuildData(cmd.OutOrStdout())
			},
		},
	)
	return root
}

// withApp loads the configuration from the command flags, builds the App
// and closes it after fn returns.
func withApp(fn func(ctx context.Context, a *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		a, err := appFactory(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a)
	}
}
