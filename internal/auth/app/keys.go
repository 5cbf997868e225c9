package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

// InitAuthKeys builds the KeyManager that signs and verifies tokens.
//
// Key sources:
//   - AUTH_SIGNING_KEY_FILE set: the Ed25519 key in that PEM file, generated
//     on first start. Every instance pointed at the same file accepts the
//     tokens of the others, and tokens survive restarts.
//   - otherwise: AUTH_NUM_KEYS fresh keys held in memory. All issued tokens
//     become invalid when the process restarts.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		VerifyOptions: jwtx.VerifyOptions{
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
		},
		NumKeys: cfg.NumKeys,
	}

	if cfg.SigningKeyFile != "" {
		key, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		km, err := jwtx.NewKeyManager(opts, key)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize key manager: %w", err)
		}
		logger.Info("signing key loaded",
			"algorithm", km.Algorithm(),
			"path", cfg.SigningKeyFile,
			"issuer", cfg.Issuer,
		)
		return km, nil
	}

	km, err := jwtx.NewEphemeralKeyManager(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
	}
	logger.Info("generated ephemeral signing keys",
		"algorithm", km.Algorithm(),
		"num_keys", km.NumSigners(),
		"issuer", cfg.Issuer,
	)
	logger.Warn("tokens issued by earlier runs are now invalid; set AUTH_SIGNING_KEY_FILE to keep keys across restarts")
	return km, nil
}
