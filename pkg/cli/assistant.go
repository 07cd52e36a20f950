package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/usecase/group"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func assistantCommand() *cli.Command {
	return &cli.Command{
		Name:  "assistant",
		Usage: "Manage assistants in a chat group",
		Commands: []*cli.Command{
			assistantAddCommand(),
			assistantListCommand(),
			assistantRemoveCommand(),
			assistantPersonaCommand(),
			assistantOptimizeCommand(),
			assistantCatalogCommand(),
		},
	}
}

func groupIDFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "group-id",
		Aliases:     []string{"g"},
		Usage:       "Chat group ID",
		Required:    true,
		Sources:     cli.EnvVars("BANTER_GROUP_ID"),
		Destination: dst,
	}
}

func assistantAddCommand() *cli.Command {
	var (
		cfg         config
		groupID     string
		assistantID string
	)

	flags := []cli.Flag{
		groupIDFlag(&groupID),
		&cli.StringFlag{
			Name:        "assistant-id",
			Aliases:     []string{"id"},
			Usage:       "Assistant ID from the catalog (see 'assistant catalog')",
			Required:    true,
			Destination: &assistantID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "add",
		Usage: "Add a catalog assistant to a group",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			catalog, err := group.DefaultAssistants()
			if err != nil {
				return err
			}

			var target *model.Assistant
			for _, a := range catalog {
				if a.ID == model.ParticipantID(assistantID) {
					target = a
					break
				}
			}
			if target == nil {
				return goerr.New("unknown assistant", goerr.V("assistant_id", assistantID))
			}

			if err := cfg.newGroup(repo).AddAssistant(ctx, model.GroupID(groupID), target); err != nil {
				return goerr.Wrap(err, "failed to add assistant")
			}

			fmt.Fprintf(c.Root().Writer, "Added %s to group %s\n", target.Name, groupID)
			return nil
		},
	}
}

func assistantListCommand() *cli.Command {
	var (
		cfg     config
		groupID string
	)

	flags := []cli.Flag{groupIDFlag(&groupID)}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List assistants in a group",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			roster, err := repo.GetRoster(ctx, model.GroupID(groupID))
			if err != nil {
				return goerr.Wrap(err, "failed to load roster")
			}

			for _, a := range roster.Assistants() {
				fmt.Fprintf(c.Root().Writer, "%s: %s (%s, memories: %d)\n",
					a.ID, a.Name, a.Persona.Tone, len(a.MemoryBank))
			}
			return nil
		},
	}
}

func assistantRemoveCommand() *cli.Command {
	var (
		cfg         config
		groupID     string
		assistantID string
	)

	flags := []cli.Flag{
		groupIDFlag(&groupID),
		&cli.StringFlag{
			Name:        "assistant-id",
			Aliases:     []string{"id"},
			Usage:       "Assistant ID to remove",
			Required:    true,
			Destination: &assistantID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "remove",
		Usage: "Remove an assistant from a group",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			if err := cfg.newGroup(repo).RemoveAssistant(ctx, model.GroupID(groupID), model.ParticipantID(assistantID)); err != nil {
				return goerr.Wrap(err, "failed to remove assistant")
			}

			fmt.Fprintf(c.Root().Writer, "Removed %s from group %s\n", assistantID, groupID)
			return nil
		},
	}
}

func assistantPersonaCommand() *cli.Command {
	var (
		cfg          config
		groupID      string
		assistantID  string
		name         string
		tone         string
		expertise    string
		instructions string
	)

	flags := []cli.Flag{
		groupIDFlag(&groupID),
		&cli.StringFlag{
			Name:        "assistant-id",
			Aliases:     []string{"id"},
			Usage:       "Assistant ID to update",
			Required:    true,
			Destination: &assistantID,
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "New display name",
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "tone",
			Usage:       "Persona tone",
			Required:    true,
			Destination: &tone,
		},
		&cli.StringFlag{
			Name:        "expertise",
			Usage:       "Persona expertise",
			Required:    true,
			Destination: &expertise,
		},
		&cli.StringFlag{
			Name:        "instructions",
			Usage:       "Additional persona instructions",
			Destination: &instructions,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "persona",
		Usage: "Update an assistant's persona in a group",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			persona := model.Persona{
				Tone:                   tone,
				Expertise:              expertise,
				AdditionalInstructions: instructions,
			}
			if err := cfg.newGroup(repo).UpdatePersona(ctx, model.GroupID(groupID), model.ParticipantID(assistantID), persona, name); err != nil {
				return goerr.Wrap(err, "failed to update persona")
			}

			fmt.Fprintf(c.Root().Writer, "Updated persona of %s\n", assistantID)
			return nil
		},
	}
}

func assistantOptimizeCommand() *cli.Command {
	var (
		cfg  config
		idea string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "idea",
			Aliases:     []string{"i"},
			Usage:       "Rough idea for the assistant's persona instructions",
			Required:    true,
			Destination: &idea,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "optimize",
		Usage: "Refine a persona idea into instructions (pass the result to 'assistant persona --instructions')",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			system, err := cfg.newSystemGateway(ctx)
			if err != nil {
				return err
			}

			optimized, err := group.NewOptimizer(system).Optimize(ctx, idea)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", optimized)
			return nil
		},
	}
}

func assistantCatalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Show the built-in assistant catalog",
		Action: func(ctx context.Context, c *cli.Command) error {
			catalog, err := group.DefaultAssistants()
			if err != nil {
				return err
			}

			for _, a := range catalog {
				fmt.Fprintf(c.Root().Writer, "%s: %s\n  %s\n", a.ID, a.Name, a.Persona.Describe())
			}
			return nil
		},
	}
}
