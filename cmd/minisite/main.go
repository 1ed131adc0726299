package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minisite-go/internal/app"
	"minisite-go/internal/archive"
	"minisite-go/internal/config"
	"minisite-go/internal/encryption"
	"minisite-go/internal/minisite"
	"minisite-go/internal/server"
	"minisite-go/internal/vault"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig reads the config file named by the application defaults.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a MinisiteApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Upload", "SetAlias").
func newApp(operation string) (*app.MinisiteApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewMinisiteApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "minisite",
	Short: "Publish zipped static sites under an alias",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		withKeys, _ := cmd.Flags().GetBool("encryption")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		siteID := uuid.New().String()
		cfg := config.NewConfig(siteID, defaults["base_dir"])
		if withKeys {
			cfg.Encryption.Type = "age"
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := app.MigrateDatabase(cfg); err != nil {
			return err
		}

		if withKeys {
			enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
			if err != nil {
				return err
			}
			passphrase, err := app.ReadNewPassphrase()
			if err != nil {
				return err
			}
			if err := enc.Setup(passphrase); err != nil {
				return fmt.Errorf("generating keys: %w", err)
			}
			fmt.Printf("Keys:     %s\n", cfg.Encryption.PublicKeyPath)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Site ID:  %s\n", siteID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Site ID:    %s\n", cfg.SiteID)
		fmt.Printf("Base URL:   %s\n", cfg.BaseURL)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Public Dir: %s (served at %s)\n", cfg.Storage.PublicDir, cfg.Storage.PublicURL)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Vault:      %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vault",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		v, err := vault.NewVaultFromConfig(cfg.Vault)
		if err != nil {
			return err
		}
		if err := v.ValidateSetup(); err != nil {
			return fmt.Errorf("vault %s: %w", cfg.Vault.Name, err)
		}
		fmt.Printf("Vault %s is ready\n", cfg.Vault.Name)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the metadata database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.MigrateDatabase(cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

var dbPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local database with the vault snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		version, err := app.PullDatabase(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Pulled database snapshot at operation #%d\n", version)
		return nil
	},
}

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate ARCHIVE",
	Short: "Check an archive without publishing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Validate")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Validate(args[0])
		if err != nil {
			return err
		}
		printViolations(result.Violations)
		if !result.OK() {
			return fmt.Errorf("%d problem(s) found", len(result.Violations))
		}
		fmt.Printf("OK: bundle root %s\n", result.Root.Path())
		return nil
	},
}

func printViolations(violations []archive.Violation) {
	for _, v := range violations {
		if v.Path != "" {
			fmt.Printf("  %s: %s\n", v.Path, v.Message)
		} else {
			fmt.Printf("  %s\n", v.Message)
		}
	}
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload ARCHIVE",
	Short: "Publish an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		encrypt, _ := cmd.Flags().GetBool("encrypt")
		var parent minisite.ParentContext
		parent.EntityType, _ = cmd.Flags().GetString("entity-type")
		parent.EntityBundle, _ = cmd.Flags().GetString("entity-bundle")
		parent.EntityID, _ = cmd.Flags().GetString("entity-id")
		parent.Language, _ = cmd.Flags().GetString("language")
		parent.FieldName, _ = cmd.Flags().GetString("field")
		opts := app.UploadOptions{AliasPrefix: prefix, Encrypt: encrypt, Parent: parent}

		a, err := newApp("Upload")
		if err != nil {
			return err
		}
		defer a.Close()

		arc, assets, err := a.Upload(args[0], opts)
		var contentErr *archive.ContentError
		if errors.As(err, &contentErr) {
			printViolations(contentErr.Violations)
		}
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		fmt.Printf("Archive %s: %d asset(s)\n", arc.ID, len(assets))
		for _, asset := range assets {
			if asset.IsIndex() {
				fmt.Printf("Entry page: %s\n", asset.AbsoluteURL())
			}
		}
		return nil
	},
}

// alias command
var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage where archives are mounted",
}

var aliasSetCmd = &cobra.Command{
	Use:   "set ARCHIVE_ID PREFIX",
	Short: "Mount an archive under a prefix",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetAlias")
		if err != nil {
			return err
		}
		defer a.Close()

		assets, err := a.SetAlias(args[0], args[1])
		if err != nil {
			return err
		}
		mount := args[1]
		for _, asset := range assets {
			if u, ok := asset.MountURL(); ok {
				mount = u
				break
			}
		}
		fmt.Printf("Mounted %d asset(s) under %s\n", len(assets), mount)
		return nil
	},
}

var aliasClearCmd = &cobra.Command{
	Use:   "clear ARCHIVE_ID",
	Short: "Unmount an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ClearAlias")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearAlias(args[0]); err != nil {
			return err
		}
		fmt.Printf("Cleared alias of %s\n", args[0])
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list [ARCHIVE_ID]",
	Short: "List archives, or the assets of one archive",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			assets, err := a.ListAssets(args[0])
			if err != nil {
				return err
			}
			for _, asset := range assets {
				fmt.Printf("%-10d  %-24s  %s\n", asset.Record.Filesize, asset.Record.Filemime, asset.URL())
			}
			return nil
		}

		archives, err := a.ListArchives()
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			fmt.Println("No archives uploaded.")
			return nil
		}
		for _, arc := range archives {
			prefix := "-"
			if arc.AliasPrefix.Valid {
				prefix = arc.AliasPrefix.String
				if prefix == "" {
					prefix = "/"
				}
			}
			encrypted := ""
			if arc.Encrypted {
				encrypted = "  [encrypted]"
			}
			fmt.Printf("%s  %s  %-20s  %s%s\n",
				arc.ID,
				arc.CreatedAt.Format("2006-01-02 15:04:05"),
				arc.Filename,
				prefix,
				encrypted,
			)
		}
		return nil
	},
}

// render command
var renderCmd = &cobra.Command{
	Use:   "render TARGET",
	Short: "Print an asset as it is served (alias path or storage URI)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Render")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Render(args[0], os.Stdout)
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete ARCHIVE_ID",
	Short: "Remove an archive with its files and vault copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore ARCHIVE_ID",
	Short: "Re-extract an archive from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		assets, err := a.Restore(args[0], app.ReadPassphrase)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restored %d asset(s)\n", len(assets))
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-12s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve published archives over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.Config()
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv := &http.Server{
			Addr:         addr,
			Handler:      a.Handler(),
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- server.ListenAndServe(srv) }()
		fmt.Printf("Serving on %s\n", addr)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return <-errCh
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("encryption", false, "Generate an age key pair for encrypted uploads")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbPullCmd)

	// alias subcommands
	aliasCmd.AddCommand(aliasSetCmd)
	aliasCmd.AddCommand(aliasClearCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringP("prefix", "p", "", "Alias prefix to mount the bundle under")
	uploadCmd.Flags().Bool("encrypt", false, "Store the archive encrypted in the vault")
	uploadCmd.Flags().String("entity-type", "", "Type of the content the bundle belongs to")
	uploadCmd.Flags().String("entity-bundle", "", "Bundle of the content the bundle belongs to")
	uploadCmd.Flags().String("entity-id", "", "ID of the content the bundle belongs to")
	uploadCmd.Flags().String("language", "", "Language of the bundle's pages")
	uploadCmd.Flags().String("field", "", "Field the bundle was uploaded through")
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr)")
}
