package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	cryptoService "github.com/allisson/credentials/internal/crypto/service"
)

// RunCreateKey generates a data encryption key, wraps it with the KMS key at
// kmsKeyURI and prints the ENCRYPTION_KEYS entry. The plaintext key never leaves
// the KMS service. If keyID is empty a date-based id is used.
//
// Use base64key:// URIs only for local development.
func RunCreateKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	keyID string,
	kmsKeyURI string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if kmsKeyURI == "" {
		return fmt.Errorf(
			"--kms-key-uri is required\n\nFor local development, use:\n  --kms-key-uri=\"base64key://<32-byte-base64-key>\"\n\nFor production, use a cloud KMS:\n  --kms-key-uri=\"gcpkms://projects/.../cryptoKeys/...\"\n  --kms-key-uri=\"awskms:///alias/...\"",
		)
	}
	if keyID == "" {
		keyID = fmt.Sprintf("key-%s", time.Now().UTC().Format("2006-01-02"))
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	wrapped, err := kmsService.GenerateWrappedKey(ctx, keeper)
	if err != nil {
		return err
	}

	logger.Info("encryption key created", slog.String("key_id", keyID))

	entry := fmt.Sprintf("%s:%s", keyID, wrapped)
	if format == "json" {
		return writeJSON(writer, map[string]string{
			"key_id":          keyID,
			"kms_key_uri":     kmsKeyURI,
			"encryption_keys": entry,
		})
	}

	_, err = fmt.Fprintf(writer,
		"# Copy these environment variables to your .env file or secrets manager\n\n"+
			"KMS_KEY_URI=\"%s\"\n"+
			"ENCRYPTION_KEYS=\"%s\"\n"+
			"ACTIVE_ENCRYPTION_KEY_ID=\"%s\"\n\n"+
			"# To rotate, append the new entry to ENCRYPTION_KEYS, make it active\n"+
			"# and run rewrap-credentials:\n"+
			"# ENCRYPTION_KEYS=\"<old-id>:<old-key>,%s\"\n",
		kmsKeyURI, entry, keyID, entry,
	)
	return err
}
