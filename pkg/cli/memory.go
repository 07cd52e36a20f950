package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/service/memorybank"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Inspect and edit assistant memory banks",
		Commands: []*cli.Command{
			memoryListCommand(),
			memoryAddCommand(),
			memoryUpdateCommand(),
			memoryDeleteCommand(),
		},
	}
}

func assistantIDFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "assistant-id",
		Aliases:     []string{"id"},
		Usage:       "Assistant ID",
		Required:    true,
		Destination: dst,
	}
}

// newMemoryEditor builds a memory service for manual edits. Manual edits
// never call the generation backend, so no credential is needed.
func (cfg *config) newMemoryEditor(ctx context.Context) (*memorybank.Service, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	return memorybank.New(repo, nil), nil
}

func memoryListCommand() *cli.Command {
	var (
		cfg         config
		groupID     string
		assistantID string
	)

	flags := []cli.Flag{groupIDFlag(&groupID), assistantIDFlag(&assistantID)}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List memories of an assistant",
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

			assistant := roster.Assistant(model.ParticipantID(assistantID))
			if assistant == nil {
				return goerr.New("assistant not found", goerr.V("assistant_id", assistantID))
			}

			for _, m := range assistant.MemoryBank {
				fmt.Fprintf(c.Root().Writer, "%s [%s] %s\n", m.ID, m.CreatedAt.Format("2006-01-02 15:04"), m.Content)
			}
			fmt.Fprintf(c.Root().Writer, "\nTotal: %d memories\n", len(assistant.MemoryBank))
			return nil
		},
	}
}

func memoryAddCommand() *cli.Command {
	var (
		cfg         config
		groupID     string
		assistantID string
		content     string
	)

	flags := []cli.Flag{
		groupIDFlag(&groupID),
		assistantIDFlag(&assistantID),
		&cli.StringFlag{
			Name:        "content",
			Aliases:     []string{"c"},
			Usage:       "Memory content",
			Required:    true,
			Destination: &content,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "add",
		Usage: "Add a memory to an assistant",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			svc, err := cfg.newMemoryEditor(ctx)
			if err != nil {
				return err
			}

			if err := svc.AddMemory(ctx, model.GroupID(groupID), model.ParticipantID(assistantID), content); err != nil {
				return goerr.Wrap(err, "failed to add memory")
			}

			fmt.Fprintf(c.Root().Writer, "Added memory to %s\n", assistantID)
			return nil
		},
	}
}

func memoryUpdateCommand() *cli.Command {
	var (
		cfg         config
		groupID     string
		assistantID string
		memoryID    string
		content     string
	)

	flags := []cli.Flag{
		groupIDFlag(&groupID),
		assistantIDFlag(&assistantID),
		&cli.StringFlag{
			Name:        "memory-id",
			Aliases:     []string{"m"},
			Usage:       "Memory ID to update",
			Required:    true,
			Destination: &memoryID,
		},
		&cli.StringFlag{
			Name:        "content",
			Aliases:     []string{"c"},
			Usage:       "New memory content",
			Required:    true,
			Destination: &content,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "update",
		Usage: "Update a memory of an assistant",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			svc, err := cfg.newMemoryEditor(ctx)
			if err != nil {
				return err
			}

			if err := svc.UpdateMemory(ctx, model.GroupID(groupID), model.ParticipantID(assistantID), model.MemoryID(memoryID), content); err != nil {
				return goerr.Wrap(err, "failed to update memory")
			}

			fmt.Fprintf(c.Root().Writer, "Updated memory %s\n", memoryID)
			return nil
		},
	}
}

func memoryDeleteCommand() *cli.Command {
	var (
		cfg         config
		groupID     string
		assistantID string
		memoryID    string
	)

	flags := []cli.Flag{
		groupIDFlag(&groupID),
		assistantIDFlag(&assistantID),
		&cli.StringFlag{
			Name:        "memory-id",
			Aliases:     []string{"m"},
			Usage:       "Memory ID to delete",
			Required:    true,
			Destination: &memoryID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a memory of an assistant",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			svc, err := cfg.newMemoryEditor(ctx)
			if err != nil {
				return err
			}

			if err := svc.DeleteMemory(ctx, model.GroupID(groupID), model.ParticipantID(assistantID), model.MemoryID(memoryID)); err != nil {
				return goerr.Wrap(err, "failed to delete memory")
			}

			fmt.Fprintf(c.Root().Writer, "Deleted memory %s\n", memoryID)
			return nil
		},
	}
}
