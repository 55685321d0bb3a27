// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const argon2Version = argon2.Version

// ErrSaltManaged is returned by Hash for bcrypt, which generates its own salt.
var ErrSaltManaged = errors.New("bcrypt manages its own salt")

// Credential is a stored password hash together with the salt and work
// factors needed to verify it.
type Credential struct {
	Params Params
	Salt   []byte

	// Hash is the derived key. For bcrypt it holds the full modular crypt
	// string and for plain credentials the password itself.
	Hash []byte
}

// ParseCredential parses a stored hashed credential in any supported format.
func ParseCredential(s string) (Credential, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Credential{}, fmt.Errorf("%w: empty", ErrMalformedCredential)
	case strings.HasPrefix(s, "$2a$"), strings.HasPrefix(s, "$2b$"), strings.HasPrefix(s, "$2y$"):
		return parseBcrypt(s)
	case strings.HasPrefix(s, "$argon2id$"):
		return parseArgon2id(s)
	default:
		return parsePBKDF2(s)
	}
}

// ParsePlain wraps a plaintext password from a PLAIN definition.
func ParsePlain(s string) (Credential, error) {
	if s == "" {
		return Credential{}, fmt.Errorf("%w: empty", ErrMalformedCredential)
	}
	return Credential{Params: Params{Algorithm: AlgorithmPlain}, Hash: []byte(s)}, nil
}

func parsePBKDF2(s string) (Credential, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Credential{}, fmt.Errorf("%w: expected salt:iterations:hash", ErrMalformedCredential)
	}
	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(salt) == 0 {
		return Credential{}, fmt.Errorf("%w: salt is not valid base64", ErrMalformedCredential)
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil {
		return Credential{}, fmt.Errorf("%w: iterations %q is not a number", ErrMalformedCredential, parts[1])
	}
	hash, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(hash) == 0 {
		return Credential{}, fmt.Errorf("%w: hash is not valid base64", ErrMalformedCredential)
	}
	p := Params{Algorithm: AlgorithmPBKDF2SHA512, Iterations: iterations, KeyLen: len(hash)}
	if err := p.Validate(); err != nil {
		return Credential{}, err
	}
	return Credential{Params: p, Salt: salt, Hash: hash}, nil
}

func parseBcrypt(s string) (Credential, error) {
	cost, err := bcrypt.Cost([]byte(s))
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	return Credential{
		Params: Params{Algorithm: AlgorithmBcrypt, Cost: cost},
		Hash:   []byte(s),
	}, nil
}

// parseArgon2id parses $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
func parseArgon2id(s string) (Credential, error) {
	fields := strings.Split(s, "$")
	if len(fields) != 6 {
		return Credential{}, fmt.Errorf("%w: argon2id needs 5 sections", ErrMalformedCredential)
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2Version {
		return Credential{}, fmt.Errorf("%w: unsupported argon2 version %q", ErrMalformedCredential, fields[2])
	}
	var (
		memory  uint32
		time    uint32
		threads uint8
	)
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return Credential{}, fmt.Errorf("%w: argon2 parameters %q", ErrMalformedCredential, fields[3])
	}
	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return Credential{}, fmt.Errorf("%w: argon2 salt is not valid base64", ErrMalformedCredential)
	}
	hash, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return Credential{}, fmt.Errorf("%w: argon2 hash is not valid base64", ErrMalformedCredential)
	}
	p := Params{
		Algorithm:  AlgorithmArgon2id,
		Iterations: int(time),
		MemoryKiB:  memory,
		Threads:    threads,
		KeyLen:     len(hash),
	}
	if err := p.Validate(); err != nil {
		return Credential{}, err
	}
	return Credential{Params: p, Salt: salt, Hash: hash}, nil
}

// String renders the credential in its stored format.
func (c Credential) String() string {
	switch c.Params.Algorithm {
	case AlgorithmBcrypt, AlgorithmPlain:
		return string(c.Hash)
	case AlgorithmArgon2id:
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2Version, c.Params.MemoryKiB, c.Params.Iterations, c.Params.Threads,
			base64.RawStdEncoding.EncodeToString(c.Salt),
			base64.RawStdEncoding.EncodeToString(c.Hash))
	default:
		return base64.StdEncoding.EncodeToString(c.Salt) + ":" +
			strconv.Itoa(c.Params.Iterations) + ":" +
			base64.StdEncoding.EncodeToString(c.Hash)
	}
}

// Hash derives a digest from plaintext, salt and p. The result is
// deterministic for the same inputs.
func Hash(plaintext, salt []byte, p Params) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch p.Algorithm {
	case AlgorithmPBKDF2SHA512:
		return pbkdf2.Key(plaintext, salt, p.Iterations, p.KeyLen, sha512.New), nil
	case AlgorithmArgon2id:
		return argon2.IDKey(plaintext, salt, uint32(p.Iterations), p.MemoryKiB, p.Threads, uint32(p.KeyLen)), nil
	case AlgorithmPlain:
		out := make([]byte, len(plaintext))
		copy(out, plaintext)
		return out, nil
	case AlgorithmBcrypt:
		return nil, ErrSaltManaged
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, p.Algorithm)
	}
}

// Verify reports whether plaintext matches c. The comparison is constant
// time with respect to the digest contents.
func Verify(plaintext []byte, c Credential) bool {
	if c.Params.Algorithm == AlgorithmBcrypt {
		return bcrypt.CompareHashAndPassword(c.Hash, plaintext) == nil
	}
	if c.Params.Algorithm == AlgorithmPlain {
		return verifyPlain(plaintext, c.Hash)
	}
	digest, err := Hash(plaintext, c.Salt, c.Params)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(digest, c.Hash) == 1
}

// verifyPlain compares fixed-size digests so the timing does not depend on
// the stored password's length.
func verifyPlain(plaintext, stored []byte) bool {
	got := sha256.Sum256(plaintext)
	want := sha256.Sum256(stored)
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

// Generate hashes plaintext with a fresh random salt.
func Generate(plaintext []byte, p Params) (Credential, error) {
	salt, err := NewSalt(DefaultSaltLength)
	if err != nil {
		return Credential{}, err
	}
	return GenerateWithSalt(plaintext, salt, p)
}

// GenerateWithSalt hashes plaintext with the given salt. bcrypt ignores the
// salt and generates its own.
func GenerateWithSalt(plaintext, salt []byte, p Params) (Credential, error) {
	if err := p.Validate(); err != nil {
		return Credential{}, err
	}
	if p.Algorithm == AlgorithmBcrypt {
		h, err := bcrypt.GenerateFromPassword(plaintext, p.Cost)
		if err != nil {
			return Credential{}, fmt.Errorf("bcrypt: %w", err)
		}
		return Credential{Params: p, Hash: h}, nil
	}
	if len(salt) == 0 && p.Algorithm != AlgorithmPlain {
		return Credential{}, fmt.Errorf("%w: salt must not be empty", ErrInvalidParams)
	}
	digest, err := Hash(plaintext, salt, p)
	if err != nil {
		return Credential{}, err
	}
	if p.Algorithm == AlgorithmPlain {
		salt = nil
	}
	return Credential{Params: p, Salt: salt, Hash: digest}, nil
}

// Decoy returns a credential with work factors p that no password verifies
// against. Verifying against it costs the same as verifying a real
// credential with the same parameters.
func Decoy(p Params) (Credential, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return Credential{}, fmt.Errorf("decoy: %w", err)
	}
	if p.Algorithm == AlgorithmPlain {
		return Credential{Params: p, Hash: []byte(base64.RawStdEncoding.EncodeToString(secret))}, nil
	}
	c, err := Generate(secret, p)
	if err != nil {
		return Credential{}, err
	}
	if p.Algorithm != AlgorithmBcrypt {
		// Replace the digest so not even the random secret verifies.
		if _, err := rand.Read(c.Hash); err != nil {
			return Credential{}, fmt.Errorf("decoy: %w", err)
		}
	}
	return c, nil
}

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewSalt returns n random alphanumeric bytes.
func NewSalt(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: salt length must be positive", ErrInvalidParams)
	}
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	// Reject bytes above the largest multiple of len(saltAlphabet) to keep
	// the distribution uniform.
	limit := byte(256 - 256%len(saltAlphabet))
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("salt: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, saltAlphabet[int(b)%len(saltAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return out, nil
}
