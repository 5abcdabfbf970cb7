package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credentials/cmd/app/commands"
	"github.com/allisson/credentials/internal/app"
	"github.com/allisson/credentials/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-key",
			Usage: "Generate a data encryption key wrapped by the KMS key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Key ID (e.g., prod-key-2026)",
				},
				&cli.StringFlag{
					Name:     "kms-key-uri",
					Value:    "",
					Required: true,
					Usage:    "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("kms-key-uri"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rewrap-credentials",
			Usage: "Re-encrypt stored credentials with the active encryption key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "prefix",
					Aliases: []string{"p"},
					Usage:   "Only rewrap credentials whose id starts with this prefix",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many credentials would be rewrapped without writing",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				rewrapUseCase, err := container.RewrapUseCase()
				if err != nil {
					return err
				}

				return commands.RunRewrapCredentials(
					ctx,
					rewrapUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("prefix"),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "create-token",
			Usage: "Generate an API bearer token and its API_TOKEN_HASH",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateToken(
					container.TokenService(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "hash-token",
			Usage: "Print the API_TOKEN_HASH for an existing token",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "token",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Plain API token",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunHashToken(
					container.TokenService(),
					commands.DefaultIO().Writer,
					cmd.String("token"),
				)
			},
		},
	}
}
