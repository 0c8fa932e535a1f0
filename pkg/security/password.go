package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/campusprint/campusprint-backend/pkg/config"
)

// MinPasswordLength is enforced on registration and password changes.
const MinPasswordLength = 6

var (
	ErrInvalidHash   = errors.New("invalid argon2id hash")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

var b64 = base64.RawStdEncoding

// argonCost is the tunable part of a hash. It is written into the PHC string
// so old hashes still verify after the configured cost changes.
type argonCost struct {
	memoryKB uint32
	passes   uint32
	threads  uint8
}

func costFromConfig(cfg config.PasswordConfig) (argonCost, int, int) {
	cost := argonCost{
		memoryKB: uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:   uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads:  uint8(clamp(cfg.ArgonParallelism, 1, 255)),
	}
	return cost, clamp(cfg.ArgonSaltLen, 8, 64), clamp(cfg.ArgonKeyLen, 16, 64)
}

// HashPassword encodes password as
// $argon2id$v=19$m=<kb>,t=<passes>,p=<threads>$<salt>$<key>.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	cost, saltLen, keyLen := costFromConfig(cfg)
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := cost.derive(password, salt, uint32(keyLen))
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, cost.memoryKB, cost.passes, cost.threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password produces encoded. Only a malformed
// hash is an error.
func VerifyPassword(password, encoded string) (bool, error) {
	cost, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := cost.derive(password, salt, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1, nil
}

func (c argonCost) derive(password string, salt []byte, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), salt, c.passes, c.memoryKB, c.threads, keyLen)
}

func parseHash(encoded string) (argonCost, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	var cost argonCost
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &cost.memoryKB, &cost.passes, &cost.threads); err != nil {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	if cost.memoryKB == 0 || cost.passes == 0 || cost.threads == 0 {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	salt, err := b64.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	return cost, salt, key, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
