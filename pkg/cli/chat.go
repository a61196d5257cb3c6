package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive question answering session",
		Flags: allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			mem, err := cfg.newMemoryService(ctx)
			if err != nil {
				return err
			}
			coord, err := cfg.newCoordinator(ctx, mem)
			if err != nil {
				return err
			}

			rl, err := readline.New("You: ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintln(c.Root().Writer, "Interactive mode. Blank line or 'exit' to quit.")

			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}

				question := strings.TrimSpace(line)
				if question == "" || question == "exit" || question == "quit" {
					break
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithSuffix(" thinking..."))
				sp.Start()
				answer, err := coord.Handle(ctx, question)
				sp.Stop()
				if err != nil {
					return goerr.Wrap(err, "failed to handle question")
				}

				fmt.Fprintf(c.Root().Writer, "Agent:\n%s\n\n", answer.Content)
				if answer.Warning != "" {
					fmt.Fprintf(c.Root().Writer, "warning: %s\n", answer.Warning)
				}
			}

			fmt.Fprintln(c.Root().Writer, "Session ended.")
			return nil
		},
	}
}
