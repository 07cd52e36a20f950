package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func groupCommand() *cli.Command {
	return &cli.Command{
		Name:  "group",
		Usage: "Manage chat groups",
		Commands: []*cli.Command{
			groupCreateCommand(),
			groupListCommand(),
			groupUpdateCommand(),
			groupDeleteCommand(),
		},
	}
}

func groupCreateCommand() *cli.Command {
	var (
		cfg  config
		name string
		icon string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "Group name",
			Required:    true,
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "icon",
			Usage:       "Group icon",
			Value:       "💬",
			Destination: &icon,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "create",
		Usage: "Create a new chat group",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			g, err := cfg.newGroup(repo).Create(ctx, name, icon)
			if err != nil {
				return goerr.Wrap(err, "failed to create group")
			}

			fmt.Fprintf(c.Root().Writer, "Created group: %s (%s)\n", g.Name, g.ID)
			return nil
		},
	}
}

func groupListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List chat groups",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			groups, err := cfg.newGroup(repo).List(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list groups")
			}

			for _, g := range groups {
				fmt.Fprintf(c.Root().Writer, "%s %s %s\n", g.ID, g.Icon, g.Name)
			}
			fmt.Fprintf(c.Root().Writer, "\nTotal: %d groups\n", len(groups))
			return nil
		},
	}
}

func groupUpdateCommand() *cli.Command {
	var (
		cfg         config
		groupID     string
		name        string
		icon        string
		description string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "group-id",
			Aliases:     []string{"g"},
			Usage:       "Group ID to update",
			Required:    true,
			Sources:     cli.EnvVars("BANTER_GROUP_ID"),
			Destination: &groupID,
		},
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "New group name",
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "icon",
			Usage:       "New group icon",
			Destination: &icon,
		},
		&cli.StringFlag{
			Name:        "description",
			Usage:       "New group description",
			Destination: &description,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "update",
		Usage: "Update a chat group",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			if err := cfg.newGroup(repo).Update(ctx, model.GroupID(groupID), name, icon, description); err != nil {
				return goerr.Wrap(err, "failed to update group")
			}

			fmt.Fprintf(c.Root().Writer, "Updated group: %s\n", groupID)
			return nil
		},
	}
}

func groupDeleteCommand() *cli.Command {
	var (
		cfg     config
		groupID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "group-id",
			Aliases:     []string{"g"},
			Usage:       "Group ID to delete",
			Required:    true,
			Sources:     cli.EnvVars("BANTER_GROUP_ID"),
			Destination: &groupID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a chat group and its messages",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			if err := cfg.newGroup(repo).Delete(ctx, model.GroupID(groupID)); err != nil {
				return goerr.Wrap(err, "failed to delete group")
			}

			fmt.Fprintf(c.Root().Writer, "Deleted group: %s\n", groupID)
			return nil
		},
	}
}
