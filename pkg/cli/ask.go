package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg     config
		outFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "out-file",
			Aliases:     []string{"o"},
			Usage:       "File to save the answer",
			Destination: &outFile,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Run a single question through the agents",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := c.Args().First()
			if question == "" {
				return goerr.New("question is required")
			}

			ctx = cfg.setupLogger(ctx)

			mem, err := cfg.newMemoryService(ctx)
			if err != nil {
				return err
			}
			coord, err := cfg.newCoordinator(ctx, mem)
			if err != nil {
				return err
			}

			answer, err := coord.Handle(ctx, question)
			if err != nil {
				return goerr.Wrap(err, "failed to handle question")
			}

			fmt.Fprintln(c.Root().Writer, answer.Content)
			if answer.Warning != "" {
				fmt.Fprintf(c.Root().Writer, "warning: %s\n", answer.Warning)
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(answer.Content), 0644); err != nil {
					return goerr.Wrap(err, "failed to write answer", goerr.V("file", outFile))
				}
			}
			return nil
		},
	}
}
