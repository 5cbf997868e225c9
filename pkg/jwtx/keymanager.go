package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
)

// AlgorithmEdDSA is the only signing algorithm issued by this service.
const AlgorithmEdDSA = "EdDSA"

// KeyManager owns the signing keys of an instance together with the KeySet
// published at the JWKS endpoint and the verifier built over it.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	VerifyOptions

	// NumKeys is how many ephemeral keys NewEphemeralKeyManager generates.
	// Defaults to 1, capped at 10.
	NumKeys int
}

// NewKeyManager builds a manager over existing Ed25519 keys. Instances that
// load the same keys (AUTH_SIGNING_KEY_FILE) verify each other's tokens.
func NewKeyManager(opts KeyManagerOptions, keys ...ed25519.PrivateKey) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if len(keys) == 0 {
		return nil, errors.New("jwtx: at least one signing key is required")
	}

	km := &KeyManager{KeySet: NewKeySet()}
	km.Verifier = NewVerifierEdDSA(km.KeySet, opts.VerifyOptions)

	for _, key := range keys {
		if err := km.AddSigner(NewEdDSASignerFromKey("", key)); err != nil {
			return nil, err
		}
	}
	return km, nil
}

// NewEphemeralKeyManager generates fresh keys that only live in memory. All
// issued tokens become unverifiable when the process exits.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	n := opts.NumKeys
	if n <= 0 {
		n = 1
	}
	if n > 10 {
		n = 10
	}

	keys := make([]ed25519.PrivateKey, 0, n)
	for i := range n {
		pemBytes, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key %d: %w", i+1, err)
		}
		key, err := cryptox.ParseEd25519Key(pemBytes)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return NewKeyManager(opts, keys...)
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string { return AlgorithmEdDSA }

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.NumSigners() > 0 && km.KeySet.IsReady()
}

// GetSigner returns one of the active signers, picked at random.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// Sign signs claims with one of the active keys.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	s := km.GetSigner()
	if s == nil {
		return "", errors.New("jwtx: no signing key available")
	}
	return s.Sign(claims)
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// AddSigner adds a signing key to both the active list and the KeySet.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return errors.New("jwtx: signer cannot be nil")
	}
	if err := signer.Validate(); err != nil {
		return err
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("jwtx: failed to add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, signer)
	return nil
}
