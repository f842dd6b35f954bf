package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediaplayer/internal/config"
	"mediaplayer/internal/database"
	"mediaplayer/internal/httpserver"
	"mediaplayer/internal/media"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var cfgPath string

// defaultConfigPath returns the per-user config location.
func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("finding config directory: %w", err)
	}
	return filepath.Join(dir, "mediad", "config.toml"), nil
}

// loadConfig reads and validates the configuration. A validation failure
// is fatal to the calling command: mediad never serves with an invalid
// config.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newShareService wires a ShareService for the CLI share commands. The
// caller must close the returned store.
func newShareService(cfg *config.Config) (*media.ShareService, media.ShareStore, error) {
	if !cfg.SharingEnabled() {
		return nil, nil, fmt.Errorf("no database configured; sharing is disabled")
	}
	store, err := database.NewStoreFromConfig(cfg, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("opening share store: %w", err)
	}
	resolver, err := media.NewPathResolver(cfg.MediaRoot)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("resolving media root: %w", err)
	}
	svc := media.NewShareService(store, resolver, nil, cfg.DefaultTTL(), nil)
	return svc, store, nil
}

var rootCmd = &cobra.Command{
	Use:   "mediad",
	Short: "Self-hosted media browser with revocable share links",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the media browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := httpserver.NewZapLogger()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		defer logger.Sync()

		var store media.ShareStore
		if cfg.SharingEnabled() {
			store, err = database.NewStoreFromConfig(cfg, nil, nil)
			if err != nil {
				return fmt.Errorf("opening share store: %w", err)
			}
			defer store.Close()
		}

		srv, err := httpserver.New(httpserver.Options{
			Config: cfg,
			Store:  store,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("initializing server: %w", err)
		}
		return srv.ListenAndServe()
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var (
	initRoot     string
	initDatabase string
	initPublic   bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			var err error
			path, err = defaultConfigPath()
			if err != nil {
				return err
			}
		}

		cfg := config.NewConfig(initRoot)
		if initDatabase != "" {
			cfg.Database = initDatabase
			cfg.ShareDefaultTTLSeconds = 7 * 24 * 3600
		}
		if initPublic {
			cfg.Mode = config.ModePublic
		}

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Media root: %s\n", cfg.MediaRoot)
		fmt.Printf("Mode:       %s\n", cfg.Mode)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Listen addr:  %s\n", cfg.ListenAddr)
		fmt.Printf("Media root:   %s\n", cfg.MediaRoot)
		fmt.Printf("Mode:         %s\n", cfg.Mode)
		if cfg.SharingEnabled() {
			fmt.Printf("Database:     %s\n", cfg.Database)
			fmt.Printf("Default TTL:  %s\n", cfg.DefaultTTL())
		} else {
			fmt.Println("Sharing:      disabled")
		}
		if cfg.PublicBaseURL != "" {
			fmt.Printf("Public base:  %s\n", cfg.PublicBaseURL)
		}
		return nil
	},
}

// share command
var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Manage share links",
}

var (
	shareExpires string
	shareValue   string
	shareUnit    string
)

var shareCreateCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create (or reuse) a share link for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, store, err := newShareService(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		share, reused, err := svc.CreateOrReuse(args[0], media.ExpiryChoice{
			Choice: shareExpires,
			Value:  shareValue,
			Unit:   shareUnit,
		})
		if err != nil {
			return fmt.Errorf("creating share: %w", err)
		}

		if reused {
			fmt.Println("Reusing existing active share.")
		}
		base := cfg.PublicBaseURL
		if base == "" {
			fmt.Printf("Token: %s\n", share.Token)
			fmt.Printf("Link:  /v/%s\n", share.Token)
		} else {
			fmt.Printf("Link:  %s/v/%s\n", base, share.Token)
		}
		if share.ExpiresAt == nil {
			fmt.Println("Expires: never")
		} else {
			fmt.Printf("Expires: %s\n", share.ExpiresAt.Format("2006-01-02 15:04 UTC"))
		}
		return nil
	},
}

var shareRevokeCmd = &cobra.Command{
	Use:   "revoke <token>",
	Short: "Revoke a share link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, store, err := newShareService(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		changed, err := svc.Revoke(args[0])
		if err != nil {
			return fmt.Errorf("revoking share: %w", err)
		}
		if changed {
			fmt.Println("Share revoked.")
		} else {
			fmt.Println("Nothing to do (unknown token or already revoked).")
		}
		return nil
	},
}

var shareListLimit int

var shareListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent share links",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, store, err := newShareService(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		shares, err := svc.ListShares(shareListLimit)
		if err != nil {
			return fmt.Errorf("listing shares: %w", err)
		}

		for _, share := range shares {
			state := "active"
			switch {
			case share.RevokedAt != nil:
				state = "revoked"
			case !svc.IsActive(share):
				state = "expired"
			}
			fmt.Printf("%-8s %s  %s\n", state, share.Token, share.FilePath)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	configCmd.AddCommand(configInitCmd, configListCmd)
	configInitCmd.Flags().StringVar(&initRoot, "root", "", "media root directory")
	configInitCmd.Flags().StringVar(&initDatabase, "database", "", "share store path (enables sharing)")
	configInitCmd.Flags().BoolVar(&initPublic, "public", false, "serve only public share links")
	configInitCmd.MarkFlagRequired("root")

	shareCmd.AddCommand(shareCreateCmd, shareRevokeCmd, shareListCmd)
	shareCreateCmd.Flags().StringVar(&shareExpires, "expires", "default", "expiry: default, never or custom")
	shareCreateCmd.Flags().StringVar(&shareValue, "value", "", "custom expiry value")
	shareCreateCmd.Flags().StringVar(&shareUnit, "unit", "hours", "custom expiry unit: hours or days")
	shareListCmd.Flags().IntVar(&shareListLimit, "limit", 20, "maximum shares to list")

	rootCmd.AddCommand(serveCmd, configCmd, shareCmd)
}
