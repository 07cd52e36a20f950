package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/usecase/group"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// consoleEmitter renders conversation events to the terminal. A single
// spinner is enough because replies of a turn are emitted one at a time.
type consoleEmitter struct {
	w  io.Writer
	sp *spinner.Spinner
}

func newConsoleEmitter(w io.Writer) *consoleEmitter {
	return &consoleEmitter{
		w:  w,
		sp: spinner.New(spinner.CharSets[14], 100*time.Millisecond),
	}
}

func (e *consoleEmitter) TypingStarted(assistant *model.Assistant) {
	e.sp.Suffix = fmt.Sprintf(" %s is typing...", assistant.DisplayName())
	e.sp.Start()
}

func (e *consoleEmitter) TypingStopped(assistant *model.Assistant) {
	e.sp.Stop()
}

func (e *consoleEmitter) MessagePosted(msg *model.Message) {
	if msg.Author == nil || msg.Type != model.MessageTypeAI {
		return
	}
	fmt.Fprintf(e.w, "[%s] %s\n", msg.Author.Name, msg.Text)
}

func chatCommand() *cli.Command {
	var (
		cfg     config
		groupID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "group-id",
			Aliases:     []string{"g"},
			Usage:       "Chat group ID (created automatically with --local)",
			Sources:     cli.EnvVars("BANTER_GROUP_ID"),
			Destination: &groupID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive group chat with the assistants",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			emitter := newConsoleEmitter(c.Root().Writer)
			conv, _, err := cfg.newConversation(ctx, repo, emitter)
			if err != nil {
				return err
			}

			gid := model.GroupID(groupID)
			if gid == "" {
				if !cfg.local {
					return goerr.New("group-id is required (or use --local)")
				}
				gid, err = seedLocalGroup(ctx, cfg.newGroup(repo))
				if err != nil {
					return err
				}
			}

			if _, err := repo.GetGroup(ctx, gid); err != nil {
				return goerr.Wrap(err, "failed to load group", goerr.V("group_id", gid))
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat started. Type 'exit' to quit.\n")

			for {
				line, err := rl.Readline()
				if err != nil { // io.EOF or readline.ErrInterrupt
					break
				}

				text := strings.TrimSpace(line)
				if text == "exit" {
					break
				}
				if text == "" {
					continue
				}

				if _, err := conv.Post(ctx, gid, text, ""); err != nil {
					fmt.Fprintf(c.Root().Writer, "error: %s\n", err.Error())
				}
			}

			// Let in-flight memory updates finish before the store goes away
			conv.Wait()

			fmt.Fprintf(c.Root().Writer, "\nChat finished\n")
			return nil
		},
	}
}

// seedLocalGroup creates a throwaway group with the built-in assistants
// for local sessions.
func seedLocalGroup(ctx context.Context, groups *group.UseCase) (model.GroupID, error) {
	g, err := groups.Create(ctx, "Lounge", "💬")
	if err != nil {
		return "", err
	}

	assistants, err := group.DefaultAssistants()
	if err != nil {
		return "", err
	}
	for _, a := range assistants {
		if err := groups.AddAssistant(ctx, g.ID, a); err != nil {
			return "", err
		}
	}

	return g.ID, nil
}
