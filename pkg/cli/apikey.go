package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func apiKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "apikey",
		Usage: "Manage the backend credential pool",
		Commands: []*cli.Command{
			apiKeyAddCommand(),
			apiKeyListCommand(),
			apiKeyDeleteCommand(),
		},
	}
}

func apiKeyAddCommand() *cli.Command {
	var (
		cfg    config
		name   string
		secret string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "Label for the key",
			Required:    true,
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "secret",
			Aliases:     []string{"s"},
			Usage:       "API key secret",
			Required:    true,
			Sources:     cli.EnvVars("BANTER_APIKEY_SECRET"),
			Destination: &secret,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "add",
		Usage: "Register a backend API key",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			key := &model.APIKey{
				ID:     model.NewAPIKeyID(),
				Name:   name,
				Secret: secret,
			}
			if err := repo.PutAPIKey(ctx, key); err != nil {
				return goerr.Wrap(err, "failed to store API key")
			}

			fmt.Fprintf(c.Root().Writer, "Registered key: %s (%s)\n", key.Name, key.ID)
			return nil
		},
	}
}

func apiKeyListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List registered API keys",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			keys, err := repo.ListAPIKeys(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list API keys")
			}

			// Secrets stay out of the listing
			for _, key := range keys {
				fmt.Fprintf(c.Root().Writer, "%s: %s\n", key.ID, key.Name)
			}
			fmt.Fprintf(c.Root().Writer, "\nTotal: %d keys\n", len(keys))
			return nil
		},
	}
}

func apiKeyDeleteCommand() *cli.Command {
	var (
		cfg   config
		keyID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "key-id",
			Aliases:     []string{"k"},
			Usage:       "API key ID to delete",
			Required:    true,
			Destination: &keyID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a registered API key",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			if err := repo.DeleteAPIKey(ctx, model.APIKeyID(keyID)); err != nil {
				return goerr.Wrap(err, "failed to delete API key")
			}

			fmt.Fprintf(c.Root().Writer, "Deleted key: %s\n", keyID)
			return nil
		},
	}
}
