package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/iamwavecut/swearjar/internal/config"
	"github.com/iamwavecut/swearjar/internal/db"
	"github.com/iamwavecut/swearjar/internal/db/sqlite"
	handlers "github.com/iamwavecut/swearjar/internal/handlers/jar"
)

type ledgerFlags struct {
	dotPath string
	dbFile  string
}

func (f *ledgerFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dotPath, "dot-path", "", "Directory holding the ledger (default $SJ_DOT_PATH or ~/.swearjar)")
	cmd.Flags().StringVar(&f.dbFile, "db-file", "", "Ledger file name (default $SJ_DB_FILE or swearjar.db)")
}

// open connects to the ledger named by flags, then SJ_ variables, then defaults.
func (f *ledgerFlags) open(ctx context.Context) (db.Client, error) {
	storage, err := config.LoadStorageFrom(ctx, envconfig.OsLookuper())
	if err != nil {
		return nil, err
	}
	if f.dotPath != "" {
		storage.DotPath = f.dotPath
	}
	if f.dbFile != "" {
		storage.DBFile = f.dbFile
	}
	client, err := sqlite.NewSQLiteClient(ctx, storage.DotPath, storage.DBFile)
	if err != nil {
		return nil, errors.WithMessage(err, "cant open ledger")
	}
	return client, nil
}

func withLedger(ctx context.Context, flags *ledgerFlags, f func(db.Client) error) error {
	client, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return f(client)
}

func newTotalCommand() *cobra.Command {
	flags := &ledgerFlags{}
	cmd := &cobra.Command{
		Use:   "total",
		Short: "Print the sum of all fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withLedger(ctx, flags, func(client db.Client) error {
				total, err := client.TotalFines(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), handlers.FormatCents(total))
				return err
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newLeadersCommand() *cobra.Command {
	flags := &ledgerFlags{}
	cmd := &cobra.Command{
		Use:   "leaders",
		Short: "Print fines per user, highest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withLedger(ctx, flags, func(client db.Client) error {
				entries, err := client.Leaderboard(ctx)
				if err != nil {
					return err
				}
				return printLeaders(cmd.OutOrStdout(), entries)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func printLeaders(w io.Writer, entries []*db.LeaderboardEntry) error {
	for _, entry := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", handlers.FormatCents(entry.TotalCents), entry.UserName); err != nil {
			return err
		}
	}
	return nil
}

func newHistoryCommand() *cobra.Command {
	flags := &ledgerFlags{}
	var limit int
	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "Print a user's most recent swears",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withLedger(ctx, flags, func(client db.Client) error {
				entries, err := client.RecentSwears(ctx, args[0], limit)
				if err != nil {
					return err
				}
				for _, entry := range entries {
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", entry.WhenSwore.UTC().Format("2006-01-02 15:04:05"), entry.SwearWord); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of swears to print")
	return cmd
}
