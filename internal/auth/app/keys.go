package app

import (
	"fmt"
	"log/slog"

	"github.com/srcvote/evote/pkg/jwtx"
)

// InitAuthKeys creates the KeyManager for the configured algorithm.
//
// When JWTSecretFile is empty the key lives only in memory and every
// restart invalidates issued tokens. Otherwise the file is created on first
// start and reused afterwards.
//
// Supported algorithms: EdDSA, HS256
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	keyManager, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		KeyFile:   cfg.JWTSecretFile,
		Verify:    jwtx.VerifyOptions{Issuer: cfg.Issuer},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}

	logger.Info("signing key ready",
		"algorithm", keyManager.Algorithm(),
		"issuer", cfg.Issuer,
		"persistent", cfg.JWTSecretFile != "",
	)
	if cfg.JWTSecretFile == "" {
		logger.Warn("signing key is ephemeral, issued tokens will not survive a restart")
	}

	return keyManager, nil
}
