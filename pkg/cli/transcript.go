package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/session"
	"github.com/urfave/cli/v3"
)

func transcriptCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, persistenceFlags(&cfg)...)

	return &cli.Command{
		Name:      "transcript",
		Usage:     "Show an archived session transcript",
		ArgsUsage: "<session-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			sessionID := c.Args().First()
			if sessionID == "" {
				return goerr.New("session ID is required")
			}
			if cfg.bucket == "" {
				return goerr.New("--bucket is required to read transcripts")
			}

			ctx = cfg.setupLogger(ctx)

			st, err := adapter.NewStorage(ctx, cfg.bucket)
			if err != nil {
				return goerr.Wrap(err, "failed to create storage adapter")
			}

			turns, err := session.LoadTranscript(ctx, st, model.SessionID(sessionID))
			if err != nil {
				return err
			}
			if len(turns) == 0 {
				fmt.Fprintf(c.Root().Writer, "No turns recorded for session %s\n", sessionID)
				return nil
			}

			for _, turn := range turns {
				fmt.Fprintf(c.Root().Writer, "%d\t%s\t%s\t%s\n",
					turn.Seq,
					turn.CreatedAt.Format("2006-01-02 15:04:05"),
					turn.Role,
					turn.Text,
				)
			}
			return nil
		},
	}
}
