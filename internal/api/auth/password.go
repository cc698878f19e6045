package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/identsvc/go-user-accounts/internal/types"
)

// Argon2id parameters. The time cost is the tunable work factor carried in
// the salt string; memory and parallelism are fixed.
const (
	saltLength  = 16
	keyLength   = 32
	memoryCost  = 64 * 1024
	parallelism = 1

	DefaultHashCost = 3
	maxHashCost     = 16
)

// GenerateSalt produces a fresh random salt parameterized by the work-factor
// cost, encoded as a PHC-style prefix:
//
//	$argon2id$v=19$m=65536,t=<cost>,p=1$<base64 salt>
//
// Each call yields a distinct salt, so salts are unique per record.
func GenerateSalt(cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultHashCost
	}
	if cost > maxHashCost {
		return "", fmt.Errorf("%w: cost factor %d out of range", types.ErrHashing, cost)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrHashing, err)
	}

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s",
		memoryCost, cost, parallelism,
		base64.RawStdEncoding.EncodeToString(salt)), nil
}

// HashPassword derives the Argon2id hash of plaintext under the given salt.
// Deterministic for a fixed (plaintext, salt) pair. The result embeds the
// salt, so verification needs only the hash string.
func HashPassword(plaintext, salt string) (string, error) {
	rawSalt, mem, iters, par, err := parseSalt(salt)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(plaintext), rawSalt, iters, mem, par, keyLength)
	return salt + "$" + base64.RawStdEncoding.EncodeToString(hash), nil
}

// VerifyPassword recomputes the hash of plaintext under the parameters and
// salt embedded in encodedHash and compares in constant time.
func VerifyPassword(plaintext, encodedHash string) bool {
	idx := strings.LastIndex(encodedHash, "$")
	if idx <= 0 {
		return false
	}
	salt, b64Hash := encodedHash[:idx], encodedHash[idx+1:]

	rawSalt, mem, iters, par, err := parseSalt(salt)
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(b64Hash)
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(plaintext), rawSalt, iters, mem, par, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// parseSalt validates a PHC-style salt prefix and extracts its components.
func parseSalt(salt string) (rawSalt []byte, mem, iters uint32, par uint8, err error) {
	// Expected structure: ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "<salt>"]
	parts := strings.Split(salt, "$")
	if len(parts) != 5 {
		return nil, 0, 0, 0, fmt.Errorf("%w: malformed salt", types.ErrHashing)
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" {
		return nil, 0, 0, 0, fmt.Errorf("%w: unsupported salt format", types.ErrHashing)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("%w: malformed salt parameters", types.ErrHashing)
	}

	rawSalt, decErr := base64.RawStdEncoding.DecodeString(parts[4])
	if decErr != nil || len(rawSalt) == 0 {
		return nil, 0, 0, 0, fmt.Errorf("%w: malformed salt encoding", types.ErrHashing)
	}

	return rawSalt, mem, iters, par, nil
}
