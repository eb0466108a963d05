package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/technosupport/secops/internal/audit"
	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/config"
	"github.com/technosupport/secops/internal/crypto"
	"github.com/technosupport/secops/internal/data"
	"github.com/technosupport/secops/internal/events"
	"github.com/technosupport/secops/internal/hikcloud"
	"github.com/technosupport/secops/internal/integration"
	"github.com/technosupport/secops/internal/platform/paths"
)

var (
	cfgFile    string
	jsonOutput bool
	tenantFlag string
	userFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "hikctl",
	Short: "Operate the Hikvision cloud integration from the command line",
	Long: `Inspect integration status, manage cloud cameras, sync devices and
refresh tokens for one tenant, directly against the database.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config/default.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "Tenant id")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Acting user id recorded in audit events")
}

// env is the wiring every command shares.
type env struct {
	cfg     *config.Config
	db      *sql.DB
	models  data.Models
	store   *hikcloud.CredentialStore
	audit   *audit.Service
	builder *integration.Builder
}

func (e *env) Close() {
	e.db.Close()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(paths.ResolveConfigPath(cfgFile))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	models := data.NewModels(db)

	var sealer hikcloud.SecretSealer
	keyring := crypto.NewKeyring()
	if err := keyring.LoadFromEnv(); err == nil {
		sealer = keyring
	}
	store := hikcloud.NewCredentialStore(models.Integrations, sealer)

	tenants, err := cameras.NewTenantResolver(cfg.Integration.TenantResolution, models.Tenants)
	if err != nil {
		db.Close()
		return nil, err
	}

	// the CLI never spools: a failed audit write is reported, not deferred
	auditSvc := audit.NewService(db, nil)

	return &env{
		cfg:    cfg,
		db:     db,
		models: models,
		store:  store,
		audit:  auditSvc,
		builder: &integration.Builder{
			Store:      store,
			Cameras:    models.CloudCameras,
			Tenants:    tenants,
			Auditor:    auditSvc,
			Publisher:  events.LogPublisher{},
			HTTPClient: &http.Client{Timeout: cfg.Integration.RequestTimeout},
		},
	}, nil
}

func parseID(name, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return id, nil
}

func tenantID() (uuid.UUID, error) {
	return parseID("tenant", tenantFlag)
}

func actorID() uuid.UUID {
	if userFlag == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(userFlag)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// withFacade builds a one-shot session for the tenant and runs fn against it.
func withFacade(cmd *cobra.Command, fn func(ctx context.Context, f *integration.Facade) error) error {
	ctx := cmd.Context()
	tid, err := tenantID()
	if err != nil {
		return err
	}
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	f := e.builder.Build(ctx, tid, actorID())
	defer f.Close()
	return fn(ctx, f)
}

// failure turns a facade false/nil result into an error carrying its message.
func failure(f *integration.Facade, fallback string) error {
	if msg := f.State().Error; msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s", fallback)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
