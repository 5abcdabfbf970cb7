package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/credentials/internal/credentials/domain"
	credentialsUsecase "github.com/allisson/credentials/internal/credentials/usecase"
)

// RunRewrapCredentials re-seals every credential whose payload was written with a
// key other than ACTIVE_ENCRYPTION_KEY_ID, or with another algorithm. With dryRun
// set it only reports how many would be rewritten.
func RunRewrapCredentials(
	ctx context.Context,
	rewrapUseCase credentialsUsecase.RewrapUseCase,
	logger *slog.Logger,
	writer io.Writer,
	prefix string,
	dryRun bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("starting credential rewrap",
		slog.String("prefix", prefix),
		slog.Bool("dry_run", dryRun),
	)

	result, err := rewrapUseCase.Rewrap(ctx, &domain.ListFilter{Prefix: prefix}, dryRun)
	if err != nil {
		if result != nil {
			logger.Error("credential rewrap stopped",
				slog.Int("scanned", result.Scanned),
				slog.Int("rewrapped", result.Rewrapped),
			)
		}
		return fmt.Errorf("failed to rewrap credentials: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"scanned":   result.Scanned,
			"rewrapped": result.Rewrapped,
			"skipped":   result.Skipped,
			"dry_run":   dryRun,
		})
	}

	if dryRun {
		_, err = fmt.Fprintf(writer, "Dry-run mode: Would rewrap %d of %d credential(s)\n",
			result.Rewrapped, result.Scanned)
		return err
	}
	_, err = fmt.Fprintf(writer, "Successfully rewrapped %d of %d credential(s), %d already current\n",
		result.Rewrapped, result.Scanned, result.Skipped)
	return err
}
