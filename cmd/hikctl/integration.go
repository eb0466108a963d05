package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/technosupport/secops/internal/hikcloud"
	"github.com/technosupport/secops/internal/integration"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the integration status of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", projectFlag)
		if err != nil {
			return err
		}
		return withFacade(cmd, func(ctx context.Context, f *integration.Facade) error {
			st := f.CheckIntegrationStatus(ctx, projectID)
			if jsonOutput {
				return printJSON(st)
			}
			fmt.Printf("Status:    %s\n", st.Status)
			fmt.Printf("Message:   %s\n", st.Message)
			if st.LastSync != nil {
				fmt.Printf("Last sync: %s\n", st.LastSync.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the device list from the cloud into a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", projectFlag)
		if err != nil {
			return err
		}
		return withFacade(cmd, func(ctx context.Context, f *integration.Facade) error {
			n, ok := f.SyncCameras(ctx, projectID)
			if !ok {
				return fmt.Errorf("%w (%d cameras written)", failure(f, "Camera sync failed"), n)
			}
			fmt.Printf("Synced %d cameras.\n", n)
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the integration access token",
}

var tokenRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh token for a new token pair",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		cfg, ok := e.store.Load(ctx, tid)
		if !ok {
			return hikcloud.ErrNotConfigured
		}
		tm := hikcloud.NewTokenManager(hikcloud.TokenManagerConfig{
			HTTPClient: &http.Client{Timeout: e.cfg.Integration.RequestTimeout},
			Persister:  e.store,
		})
		tm.SetConfig(cfg)
		if !tm.Refresh(ctx) {
			return hikcloud.ErrTokenRefreshFailed
		}

		fresh, _ := tm.Config()
		fmt.Printf("Token refreshed, expires %s.\n", fresh.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or protect the integration credentials",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the tenant's integration config with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		cfg, ok := e.store.Load(ctx, tid)
		if !ok {
			return fmt.Errorf("%s", integration.MsgNotConfigured)
		}
		m := cfg.Masked()
		if jsonOutput {
			return printJSON(m)
		}
		fmt.Printf("Endpoint:      %s\n", m.Endpoint)
		fmt.Printf("Client ID:     %s\n", m.ClientID)
		fmt.Printf("Client secret: %s\n", m.ClientSecret)
		fmt.Printf("Access token:  %v\n", m.HasAccessToken)
		if m.TokenExpiresAt != nil {
			fmt.Printf("Expires:       %s\n", m.TokenExpiresAt.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

var configSealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Encrypt the tenant's secret columns with the active master key",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if err := e.store.SealAtRest(ctx, tid); err != nil {
			return err
		}
		fmt.Println("Integration secrets sealed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, syncCmd, tokenCmd, configCmd)
	tokenCmd.AddCommand(tokenRefreshCmd)
	configCmd.AddCommand(configShowCmd, configSealCmd)

	for _, c := range []*cobra.Command{statusCmd, syncCmd} {
		c.Flags().StringVar(&projectFlag, "project", "", "Project id")
		_ = c.MarkFlagRequired("project")
	}
}
