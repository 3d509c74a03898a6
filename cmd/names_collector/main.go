package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"accountmeta/config"
	loggeradapter "accountmeta/internal/adapters/logger"
	"accountmeta/internal/app"
	"accountmeta/internal/domain"
	"accountmeta/internal/domain/scope"
	httpports "accountmeta/internal/ports/http"
)

type options struct {
	dump   bool
	noWait bool
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	cfg := config.Load()
	logger, err := loggeradapter.NewLogger(cfg.IsDevelopment(), cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config, logger *loggeradapter.Logger) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "names_collector",
		Short:        "Download and query Oasis and Pontus-X named account registries",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.dump, "dump", false, "print results with go-spew instead of JSON")

	root.AddCommand(
		newSyncCmd(cfg, logger),
		newLookupCmd(cfg, logger, opts),
		newSearchCmd(cfg, logger, opts),
		newScopesCmd(cfg, opts),
	)
	return root
}

func newSyncCmd(cfg *config.Config, logger *loggeradapter.Logger) *cobra.Command {
	var network string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download every configured registry and persist the snapshots",
		Long: `Download the named-accounts list of every served scope concurrently
and store it in the registry database, so the server can fall back to it
when a registry is unreachable.

Example:
  names_collector sync
  names_collector sync --network testnet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Database.Path == "" {
				return fmt.Errorf("database path is required for sync")
			}

			var only scope.Network
			if network != "" {
				n, err := scope.ParseNetwork(network)
				if err != nil {
					return err
				}
				only = n
			}

			sources, err := app.NewSources(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer sources.Close()

			return syncAll(cmd.Context(), sources, only, cfg.Registry.SyncConcurrency, logger, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&network, "network", "", "only sync scopes of this network")
	return cmd
}

// syncer is the part of a source the sync command drives
type syncer interface {
	Sync(ctx context.Context, s scope.Scope) (int, error)
}

func syncAll(ctx context.Context, sources *app.Sources, only scope.Network, limit int, logger *loggeradapter.Logger, out io.Writer) error {
	infos := make([]scope.Info, 0)
	for _, s := range sources.Table.Scopes() {
		infos = append(infos, sources.Table.Describe(s))
	}
	return runSync(ctx, infos, func(s scope.Scope) syncer { return sources.For(s) }, only, limit, logger, out)
}

func runSync(ctx context.Context, infos []scope.Info, syncerFor func(scope.Scope) syncer, only scope.Network, limit int, logger *loggeradapter.Logger, out io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var mu sync.Mutex
	for _, info := range infos {
		if info.IsLocal || (only != "" && info.Scope.Network != only) {
			continue
		}

		s := info.Scope
		src := syncerFor(s)
		g.Go(func() error {
			n, err := src.Sync(gctx, s)
			if err != nil {
				logger.Error("Registry sync failed", zap.String("scope", s.String()), zap.Error(err))
				return err
			}
			logger.Info("Registry synced", zap.String("scope", s.String()), zap.Int("entries", n))

			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintf(out, "%s\t%d\n", s, n)
			return err
		})
	}

	return g.Wait()
}

func newLookupCmd(cfg *config.Config, logger *loggeradapter.Logger, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <network> <layer> <address>",
		Short: "Resolve the metadata of an address",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scope.ParseScope(args[0], args[1])
			if err != nil {
				return err
			}

			sources, err := app.NewSources(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer sources.Close()

			return lookup(cmd.Context(), sources.Service(logger), s, args[2], opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "print the first snapshot without waiting for the sources")
	return cmd
}

func lookup(ctx context.Context, svc domain.MetadataService, s scope.Scope, address string, opts *options, out io.Writer) error {
	res, err := svc.AccountMetadata(ctx, s, address, !opts.noWait)
	if err != nil {
		return err
	}
	return render(out, opts, httpports.ToHTTPAddressMetadata(s, address, res))
}

func newSearchCmd(cfg *config.Config, logger *loggeradapter.Logger, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <network> <layer> <name>",
		Short: "Search named accounts by a name fragment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scope.ParseScope(args[0], args[1])
			if err != nil {
				return err
			}

			sources, err := app.NewSources(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer sources.Close()

			return search(cmd.Context(), sources.Service(logger), s, args[2], opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "print the first snapshot without waiting for the sources")
	return cmd
}

func search(ctx context.Context, svc domain.MetadataService, s scope.Scope, name string, opts *options, out io.Writer) error {
	res, err := svc.SearchByName(ctx, s, name, !opts.noWait)
	if err != nil {
		return err
	}
	return render(out, opts, httpports.ToHTTPNameSearch(s, name, res))
}

func newScopesCmd(cfg *config.Config, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List the served network/layer pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := cfg.ScopeTable()
			if err != nil {
				return err
			}
			infos := make([]scope.Info, 0)
			for _, s := range table.Scopes() {
				infos = append(infos, table.Describe(s))
			}
			return render(cmd.OutOrStdout(), opts, httpports.ToHTTPScopes(infos))
		},
	}
}

func render(out io.Writer, opts *options, v interface{}) error {
	if opts.dump {
		spew.Fdump(out, v)
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
