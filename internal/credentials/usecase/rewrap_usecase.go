package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/credentials/internal/credentials/domain"
	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"
	"github.com/allisson/credentials/internal/database"
	apperrors "github.com/allisson/credentials/internal/errors"
)

// RewrappingSealer is a Sealer that can tell whether a payload was written with
// an older key or algorithm.
type RewrappingSealer interface {
	Sealer
	NeedsRewrap(encrypted *domain.EncryptedCredential) bool
}

// RewrapResult counts what a rewrap pass did.
type RewrapResult struct {
	Scanned   int
	Rewrapped int
	Skipped   int
}

// RewrapUseCase re-encrypts stored credentials with the sealer's current key.
type RewrapUseCase interface {
	// Rewrap processes every id matching filter. With dryRun set it only counts
	// the credentials that would be rewritten.
	Rewrap(ctx context.Context, filter *domain.ListFilter, dryRun bool) (*RewrapResult, error)
}

type rewrapUseCase struct {
	txManager database.TxManager
	storage   CredentialStorage
	sealer    RewrappingSealer
	logger    *slog.Logger
}

// NewRewrapUseCase creates a RewrapUseCase. Each credential is read and written
// back inside its own transaction.
func NewRewrapUseCase(
	txManager database.TxManager,
	storage CredentialStorage,
	sealer RewrappingSealer,
	logger *slog.Logger,
) RewrapUseCase {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &rewrapUseCase{
		txManager: txManager,
		storage:   storage,
		sealer:    sealer,
		logger:    logger,
	}
}

func (r *rewrapUseCase) Rewrap(
	ctx context.Context,
	filter *domain.ListFilter,
	dryRun bool,
) (*RewrapResult, error) {
	ids, err := r.storage.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	result := &RewrapResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++

		rewrapped, err := r.rewrapOne(ctx, id, dryRun)
		if err != nil {
			return result, domain.NewCredentialError("rewrap", id, err)
		}
		if !rewrapped {
			result.Skipped++
			continue
		}
		result.Rewrapped++
	}

	r.logger.Info(
		"rewrap finished",
		slog.Int("scanned", result.Scanned),
		slog.Int("rewrapped", result.Rewrapped),
		slog.Int("skipped", result.Skipped),
		slog.Bool("dry_run", dryRun),
	)
	return result, nil
}

func (r *rewrapUseCase) rewrapOne(ctx context.Context, id domain.CredentialID, dryRun bool) (bool, error) {
	rewrapped := false
	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		stored, err := r.storage.Retrieve(ctx, id)
		if err != nil {
			// Deleted between List and Retrieve.
			if apperrors.Is(err, domain.ErrCredentialNotFound) {
				return nil
			}
			return fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		if !r.sealer.NeedsRewrap(stored.Encrypted) {
			return nil
		}
		rewrapped = true
		if dryRun {
			return nil
		}

		aad := []byte(id)
		plaintext, err := r.sealer.Open(ctx, stored.Encrypted, aad)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrCrypto, err)
		}
		defer cryptoDomain.Zero(plaintext)

		encrypted, err := r.sealer.Seal(ctx, plaintext, aad)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrCrypto, err)
		}
		if err := r.storage.Store(ctx, id, encrypted, &stored.Metadata); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}

		r.logger.Debug(
			"credential rewrapped",
			slog.String("credential_id", id.String()),
			slog.String("from_key_id", stored.Encrypted.KeyID),
			slog.String("to_key_id", encrypted.KeyID),
		)
		return nil
	})
	return rewrapped, err
}
