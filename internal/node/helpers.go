package node

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// loadSignerKey reads a hex-encoded 32-byte scalar from path: the
// private half of the keypair that signs checkpoint manifests.
func loadSignerKey(path string) (crypto.Scalar, error) {
	path = expandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return crypto.Scalar{}, fmt.Errorf("checkpoint signer key file not found: %s", path)
		}
		return crypto.Scalar{}, fmt.Errorf("read checkpoint signer key %s: %w", path, err)
	}

	hexStr := strings.TrimSpace(string(data))
	keyBytes, err := hex.DecodeString(hexStr)
	if err != nil {
		return crypto.Scalar{}, fmt.Errorf("checkpoint signer key %s contains invalid hex: %w", path, err)
	}

	s, err := crypto.NewScalarCanonical(keyBytes)
	if err != nil {
		return crypto.Scalar{}, fmt.Errorf("invalid checkpoint signer key in %s: %w", path, err)
	}
	return s, nil
}

// formatDifficulty returns a human-readable difficulty string (e.g. "1.05M").
func formatDifficulty(d uint64) string {
	switch {
	case d >= 1_000_000_000_000:
		return fmt.Sprintf("%.2fT", float64(d)/1_000_000_000_000)
	case d >= 1_000_000_000:
		return fmt.Sprintf("%.2fG", float64(d)/1_000_000_000)
	case d >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(d)/1_000_000)
	case d >= 1_000:
		return fmt.Sprintf("%.2fK", float64(d)/1_000)
	default:
		return fmt.Sprintf("%d", d)
	}
}
