package main

import (
	"context"
	"fmt"
	"log"
	"time"

	approuters "github.com/Trushar30/AURA-Message/internal/app_routers"
	"github.com/Trushar30/AURA-Message/internal/auth"
	"github.com/Trushar30/AURA-Message/internal/configuration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	tokenTTL   time.Duration

	rootCmd = &cobra.Command{
		Use:          "aura-server",
		Short:        "Realtime messaging server for AURA",
		SilenceUsage: true,
		RunE:         runServer,
	}

	issueTokenCmd = &cobra.Command{
		Use:   "issue-token [userId]",
		Short: "Sign a bearer token for a user, for local testing",
		Args:  cobra.ExactArgs(1),
		RunE:  runIssueToken,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("aura-server: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.json", "path to the JSON config file")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to auth.token_ttl_minutes)")
	rootCmd.AddCommand(issueTokenCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := configuration.LoadConfig(configPath)
	if err != nil {
		return err
	}

	container, err := configuration.BuildContainer(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	return approuters.StartServer(container)
}

func runIssueToken(cmd *cobra.Command, args []string) error {
	cfg, err := configuration.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.TokenTTL
	}

	token, err := auth.NewVerifier(cfg.Auth.JWTSecret, nil, zap.NewNop()).IssueToken(args[0], ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
