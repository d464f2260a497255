// Package main is the operator CLI for the procurement service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"procurement/db"
	"procurement/db/migrations"
	"procurement/internal/ai"
	"procurement/internal/config"
	"procurement/internal/events"
	"procurement/internal/logging"
	"procurement/internal/rfps"
	"procurement/internal/vendors"
	"procurement/models"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "procurementctl",
	Short: "Procurement service operator CLI",
	Long:  `Commands for migrating the database and inspecting procurement data.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, aiCmd, vendorCmd, rfpCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	aiCmd.AddCommand(aiHealthCmd)
	vendorCmd.AddCommand(vendorActivateCmd, vendorDeactivateCmd)
	rfpCmd.AddCommand(rfpListCmd)

	rfpListCmd.Flags().String("status", "", "only list RFPs with this status")
	rfpListCmd.Flags().Int("limit", 20, "number of RFPs to show")
}

// env holds what a command needs to talk to the database.
type env struct {
	cfg    *config.Config
	conn   *sqlx.DB
	store  *db.Storage
	logger *zap.Logger
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.PostgresConn == "" {
		return nil, errors.New("POSTGRES_CONN not set")
	}
	logger, err := logging.New("warn", cfg.AppEnv)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(ctx, cfg.PostgresConn, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &env{cfg: cfg, conn: conn, store: db.NewStorage(conn), logger: logger}, nil
}

func (e *env) close() {
	e.conn.Close()
	e.logger.Sync()
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()
		return migrations.Run(e.conn.DB)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()
		return migrations.Down(e.conn.DB)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()
		return migrations.Status(e.conn.DB)
	},
}

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "AI provider operations",
}

var aiHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the configured AI provider answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		provider, err := ai.NewProvider(cmd.Context(), ai.ProviderOptions{
			Name:         cfg.AIProvider,
			HFAPIKey:     cfg.HFAPIKey,
			HFModel:      cfg.HFModel,
			GeminiAPIKey: cfg.GeminiAPIKey,
			GeminiModel:  cfg.GeminiModel,
			Timeout:      cfg.AITimeout,
		})
		if err != nil {
			return err
		}
		health := ai.NewClient(provider, cfg.AITimeout, zap.NewNop()).HealthCheck(cmd.Context())
		out, _ := json.MarshalIndent(health, "", "  ")
		fmt.Println(string(out))
		if !health.Healthy {
			return errors.New("AI provider is unhealthy")
		}
		return nil
	},
}

var vendorCmd = &cobra.Command{
	Use:   "vendor",
	Short: "Vendor operations",
}

var vendorActivateCmd = &cobra.Command{
	Use:   "activate <vendor-id>",
	Short: "Mark a vendor active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setVendorActive(cmd.Context(), args[0], true)
	},
}

var vendorDeactivateCmd = &cobra.Command{
	Use:   "deactivate <vendor-id>",
	Short: "Mark a vendor inactive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setVendorActive(cmd.Context(), args[0], false)
	},
}

func setVendorActive(ctx context.Context, id string, active bool) error {
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	v, err := vendors.NewRegistry(e.store, e.logger).SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s) active=%t\n", v.Name, v.Email, v.IsActive)
	return nil
}

var rfpCmd = &cobra.Command{
	Use:   "rfp",
	Short: "RFP operations",
}

var rfpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent RFPs",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		m := rfps.NewManager(e.store, events.NewBus(), e.logger)
		list, pg, err := m.List(cmd.Context(), models.RFPFilter{Status: models.RFPStatus(status)}, 1, limit)
		if err != nil {
			return err
		}
		fmt.Printf("%d RFPs, showing %d\n\n", pg.Total, len(list))
		for _, r := range list {
			fmt.Printf("%s  %-12s %3d vendors  %s  %s\n",
				r.ID, r.Status, r.VendorCount, r.CreatedAt.Format(time.DateOnly), r.Title)
		}
		return nil
	},
}
