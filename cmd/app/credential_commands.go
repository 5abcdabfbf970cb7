package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credentials/cmd/app/commands"
	"github.com/allisson/credentials/internal/app"
	"github.com/allisson/credentials/internal/config"
	credentialsUsecase "github.com/allisson/credentials/internal/credentials/usecase"
)

func idFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "Credential ID",
	}
}

func scopeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "scope",
		Aliases: []string{"s"},
		Usage:   "Scope path of level:value segments (e.g., org:acme/team:eng)",
	}
}

// withManager runs fn with the credential manager of a fresh container.
func withManager(
	ctx context.Context,
	fn func(manager credentialsUsecase.CredentialManager) error,
) error {
	container := app.NewContainer(config.Load())
	defer func() { _ = container.Shutdown(ctx) }()

	manager, err := container.CredentialManager()
	if err != nil {
		return err
	}
	return fn(manager)
}

func getCredentialCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "store",
			Usage: "Store or replace a credential",
			Flags: []cli.Flag{
				idFlag(),
				scopeFlag(),
				&cli.StringFlag{
					Name:     "value",
					Required: true,
					Usage:    "Secret value, or '-' to read it from stdin",
				},
				&cli.StringFlag{
					Name:    "tags",
					Aliases: []string{"t"},
					Usage:   "Comma-separated tags",
				},
				&cli.DurationFlag{
					Name:  "expires-in",
					Usage: "Expire the credential after this duration (e.g., 720h)",
				},
				&cli.DurationFlag{
					Name:  "rotation-interval",
					Usage: "Recommend rotation at this interval (e.g., 2160h)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withManager(ctx, func(manager credentialsUsecase.CredentialManager) error {
					return commands.RunStoreCredential(ctx, manager, commands.DefaultIO(), commands.StoreOptions{
						ID:               cmd.String("id"),
						Scope:            cmd.String("scope"),
						Value:            cmd.String("value"),
						Tags:             cmd.String("tags"),
						ExpiresIn:        cmd.Duration("expires-in"),
						RotationInterval: cmd.Duration("rotation-interval"),
					})
				})
			},
		},
		{
			Name:  "get",
			Usage: "Show a credential",
			Flags: []cli.Flag{
				idFlag(),
				scopeFlag(),
				&cli.BoolFlag{
					Name:  "reveal",
					Value: false,
					Usage: "Print the secret value",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withManager(ctx, func(manager credentialsUsecase.CredentialManager) error {
					return commands.RunGetCredential(
						ctx,
						manager,
						commands.DefaultIO().Writer,
						cmd.String("id"),
						cmd.String("scope"),
						cmd.Bool("reveal"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "delete",
			Usage: "Delete a credential",
			Flags: []cli.Flag{idFlag(), scopeFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withManager(ctx, func(manager credentialsUsecase.CredentialManager) error {
					return commands.RunDeleteCredential(
						ctx,
						manager,
						commands.DefaultIO().Writer,
						cmd.String("id"),
						cmd.String("scope"),
					)
				})
			},
		},
		{
			Name:  "list",
			Usage: "List credential ids",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "prefix",
					Aliases: []string{"p"},
					Usage:   "Only list ids starting with this prefix",
				},
				&cli.StringFlag{
					Name:    "tags",
					Aliases: []string{"t"},
					Usage:   "Comma-separated tags that must all be present",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   0,
					Usage:   "Maximum number of ids, 0 for no limit",
				},
				scopeFlag(),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withManager(ctx, func(manager credentialsUsecase.CredentialManager) error {
					return commands.RunListCredentials(
						ctx,
						manager,
						commands.DefaultIO().Writer,
						cmd.String("prefix"),
						cmd.String("tags"),
						int(cmd.Int("limit")),
						cmd.String("scope"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "validate",
			Usage: "Check expiry and rotation status of a credential",
			Flags: []cli.Flag{idFlag(), scopeFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withManager(ctx, func(manager credentialsUsecase.CredentialManager) error {
					return commands.RunValidateCredential(
						ctx,
						manager,
						commands.DefaultIO().Writer,
						cmd.String("id"),
						cmd.String("scope"),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
