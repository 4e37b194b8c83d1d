package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shopbot/internal/config"
	"shopbot/internal/domain"
	"shopbot/internal/store"
	"shopbot/internal/vault"
)

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.New(cfg.Storage.DBPath, logger)
}

func channelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage connected messaging channels",
	}

	var owner, token string
	add := &cobra.Command{
		Use:   "add <channel-id>",
		Short: "Connect a channel, encrypting its access token at rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("SHOPBOT_PAGE_TOKEN")
			}
			if token == "" {
				return errors.New("provide the page access token via --token or SHOPBOT_PAGE_TOKEN")
			}
			if owner == "" {
				return errors.New("--owner is required")
			}

			cfg := loadConfig()
			cipher, err := vault.New(config.Secret(cfg.Vault.KeyHex))
			if err != nil {
				return fmt.Errorf("vault.keyHex: %w", err)
			}
			enc, err := cipher.Encrypt(token)
			if err != nil {
				return err
			}

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Put(cmd.Context(), domain.Channel{
				ID:              args[0],
				OwnerID:         owner,
				TokenCiphertext: enc,
			}); err != nil {
				return err
			}
			logger.Info("channel connected", "channel", args[0], "owner", owner)
			return nil
		},
	}
	add.Flags().StringVar(&owner, "owner", "", "owning account ID")
	add.Flags().StringVar(&token, "token", "", "page access token (prefer SHOPBOT_PAGE_TOKEN)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List connected channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(loadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			channels, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, ch := range channels {
				fmt.Printf("%s\towner=%s\tconnected=%s\n", ch.ID, ch.OwnerID, ch.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// catalogFile is the YAML seed format for `catalog import`.
type catalogFile struct {
	Products []domain.Product `yaml:"products"`
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the product catalog",
	}

	var owner string
	imp := &cobra.Command{
		Use:   "import <products.yaml>",
		Short: "Replace an owner's catalog from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				return errors.New("--owner is required")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var file catalogFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			for _, p := range file.Products {
				if p.Name == "" || p.Price == "" {
					return fmt.Errorf("every product needs a name and a price, got %+v", p)
				}
			}

			db, err := openStore(loadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.ReplaceProducts(cmd.Context(), owner, file.Products); err != nil {
				return err
			}
			logger.Info("catalog imported", "owner", owner, "products", len(file.Products))
			return nil
		},
	}
	imp.Flags().StringVar(&owner, "owner", "", "owning account ID")

	cmd.AddCommand(imp)
	return cmd
}

func logsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recently delivered replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(loadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.RecentLog(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s\t%s -> %s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.ChannelID, e.SenderID, e.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	return cmd
}
