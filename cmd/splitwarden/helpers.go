package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/config"
	"github.com/splitwarden/splitwarden/internal/engine"
	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/service"
	"github.com/splitwarden/splitwarden/internal/splitwise"
	"github.com/splitwarden/splitwarden/internal/storage"
)

// initStore opens the mirror database and brings the schema current.
func initStore(ctx context.Context) (service.Store, error) {
	store, err := storage.NewSQLiteStore(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// initEngine wires the store and the Splitwise client into an engine.
// The returned cleanup closes the store.
func initEngine(ctx context.Context) (*engine.Engine, func(), error) {
	store, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	swCfg, err := config.LoadSplitwiseConfig()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	ledger, err := splitwise.NewClient(*swCfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	eng := engine.New(store, ledger, config.LoadEngineConfig())
	cleanup := func() { _ = store.Close() }
	return eng, cleanup, nil
}

// resolveIdentity authenticates the caller from --token or the
// SPLITWARDEN_TOKEN environment variable. With a token secret
// configured, credentials must be signed JWTs; otherwise they are bare
// emails for local use.
func resolveIdentity(cmd *cobra.Command) (*identity.Identity, error) {
	credential, _ := cmd.Flags().GetString("token")
	if credential == "" {
		credential = os.Getenv("SPLITWARDEN_TOKEN")
	}
	if credential == "" {
		return nil, fmt.Errorf("no credential: pass --token or set SPLITWARDEN_TOKEN")
	}

	authCfg := config.LoadAuthConfig()
	var provider identity.Provider
	if authCfg.TokenSecret != "" {
		p, err := identity.NewTokenProvider(authCfg.TokenSecret, authCfg.AdminEmails)
		if err != nil {
			return nil, err
		}
		provider = p
	} else {
		provider = identity.NewStaticProvider(authCfg.AdminEmails)
	}

	return provider.Authenticate(cmd.Context(), credential)
}
