package commands

import (
	"fmt"
	"io"

	authService "github.com/allisson/credentials/internal/auth/service"
)

// RunCreateToken generates an API bearer token and prints it with the
// API_TOKEN_HASH value the server verifies it against. The plain token is
// shown once and never stored.
func RunCreateToken(tokenService authService.TokenService, writer io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	token, hash, err := tokenService.GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]string{
			"token":          token,
			"api_token_hash": hash,
		})
	}

	_, err = fmt.Fprintf(writer,
		"Token: %s\n\n"+
			"# Store the token securely, it cannot be recovered.\n"+
			"API_TOKEN_HASH='%s'\n",
		token, hash,
	)
	return err
}

// RunHashToken prints the API_TOKEN_HASH for an existing token.
func RunHashToken(tokenService authService.TokenService, writer io.Writer, token string) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	hash, err := tokenService.HashToken(token)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}

	_, err = fmt.Fprintf(writer, "API_TOKEN_HASH='%s'\n", hash)
	return err
}
