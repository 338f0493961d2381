// ABOUTME: Sync commands for the Charm cloud voiceprint backend
// ABOUTME: Provides status, immediate sync, and local cache wipe
package commands

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/storage"
)

type syncStatusRecord struct {
	Success   bool   `json:"success"`
	Connected bool   `json:"connected"`
	UserID    string `json:"user_id,omitempty"`
	Host      string `json:"host"`
	Database  string `json:"database"`
}

type syncRecord struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization of voiceprints with Charm cloud.

Only applies when the store backend is "charm" (VOICEAUTH_STORE=charm).
Charm authenticates with SSH keys, so voiceprints enrolled on one device
are available on every device linked to the same Charm account.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncWipeCmd())

	return cmd
}

// openCharmStore opens the Charm backend directly; the embedding
// provider is not needed for sync
func openCharmStore(cmd *cobra.Command) (*storage.CharmStore, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Backend != config.BackendCharm {
		return nil, nil, &setupError{fmt.Errorf("sync requires the %q store backend, configured backend is %q",
			config.BackendCharm, cfg.Store.Backend)}
	}

	store, err := storage.NewCharmStore(cfg.Store)
	if err != nil {
		return nil, nil, &setupError{fmt.Errorf("failed to connect to Charm: %w", err)}
	}
	return store, cfg, nil
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openCharmStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			rec := &syncStatusRecord{
				Success:  true,
				Host:     store.Client().Host(),
				Database: cfg.Store.CharmDB,
			}
			id, err := store.Client().ID()
			if err != nil {
				log.Warn("charm account not reachable", "err", err)
			} else {
				rec.Connected = true
				rec.UserID = id
			}

			return writeRecord(cmd.OutOrStdout(), rec)
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openCharmStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			log.Debug("syncing voiceprints")
			if err := store.Client().Sync(); err != nil {
				return &setupError{fmt.Errorf("sync failed: %w", err)}
			}

			return writeRecord(cmd.OutOrStdout(), &syncRecord{Success: true, Message: "Sync complete"})
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe the local voiceprint cache",
		Long: `Completely wipe the locally cached Charm data.

Voiceprints already synced to the cloud remain intact and are fetched
again on next access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("wipe deletes all local voiceprint data; run with --confirm to proceed")
			}

			store, _, err := openCharmStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Client().Reset(); err != nil {
				return &setupError{fmt.Errorf("failed to wipe data: %w", err)}
			}

			return writeRecord(cmd.OutOrStdout(), &syncRecord{Success: true, Message: "Local data wiped"})
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}
