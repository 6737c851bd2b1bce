// Package keyfile loads and persists the node's Ed25519 identity key. A
// missing file generates a fresh identity and writes it with restrictive
// permissions; this is the module's only persisted state.
package keyfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"

	"github.com/nodecore/noderuntime/internal/logging"
)

var log = logging.Logger("keyfile")

// LoadOrCreate loads a persistent identity key from path, or generates a
// new Ed25519 key and saves it on first run. The bool return reports
// whether a new key was generated.
func LoadOrCreate(path string) (crypto.PrivKey, bool, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		priv, err := crypto.UnmarshalPrivateKey(data)
		if err == nil {
			log.Infof("loaded identity key: %s", path)
			return priv, false, nil
		}
		log.Warnf("corrupt identity key at %s: %v (generating new key)", path, err)
	}

	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, false, fmt.Errorf("generate identity key: %w", err)
	}

	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, false, fmt.Errorf("marshal identity key: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, false, fmt.Errorf("create key directory: %w", err)
		}
	}

	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, false, fmt.Errorf("save identity key: %w", err)
	}

	log.Infof("generated new identity key: %s", path)
	return priv, true, nil
}
