// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package credentials

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm identifies a credential hashing scheme.
type Algorithm int

const (
	// AlgorithmPBKDF2SHA512 is PBKDF2 with HMAC-SHA512.
	AlgorithmPBKDF2SHA512 Algorithm = iota
	// AlgorithmBcrypt is bcrypt in modular crypt format.
	AlgorithmBcrypt
	// AlgorithmArgon2id is argon2id in PHC string format.
	AlgorithmArgon2id
	// AlgorithmPlain stores the password itself.
	AlgorithmPlain
)

// Default work factors.
const (
	DefaultPBKDF2Iterations = 100
	DefaultPBKDF2KeyLen     = 64
	DefaultBcryptCost       = bcrypt.DefaultCost
	DefaultArgon2Time       = 1
	DefaultArgon2MemoryKiB  = 64 * 1024
	DefaultArgon2Threads    = 4
	DefaultArgon2KeyLen     = 32
	DefaultSaltLength       = 32
)

var (
	// ErrUnsupportedAlgorithm is returned for unknown algorithm names.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// ErrInvalidParams is returned when work factors are out of range.
	ErrInvalidParams = errors.New("invalid hash parameters")

	// ErrMalformedCredential is returned when a stored credential cannot be parsed.
	ErrMalformedCredential = errors.New("malformed credential")
)

var algorithmNames = map[Algorithm]string{
	AlgorithmPBKDF2SHA512: "pbkdf2-sha512",
	AlgorithmBcrypt:       "bcrypt",
	AlgorithmArgon2id:     "argon2id",
	AlgorithmPlain:        "plain",
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm converts a configuration name to an Algorithm.
// Matching is case-insensitive.
func ParseAlgorithm(s string) (Algorithm, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for alg, n := range algorithmNames {
		if n == name {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

// Params holds the work factors for an algorithm. Fields that do not apply
// to the algorithm are zero.
type Params struct {
	Algorithm Algorithm

	// Iterations is the PBKDF2 round count or the argon2 time cost.
	Iterations int

	// Cost is the bcrypt cost.
	Cost int

	// MemoryKiB and Threads are argon2 parameters.
	MemoryKiB uint32
	Threads   uint8

	// KeyLen is the derived key length in bytes.
	KeyLen int
}

// DefaultParams returns the default work factors for alg.
func DefaultParams(alg Algorithm) Params {
	switch alg {
	case AlgorithmBcrypt:
		return Params{Algorithm: alg, Cost: DefaultBcryptCost}
	case AlgorithmArgon2id:
		return Params{
			Algorithm:  alg,
			Iterations: DefaultArgon2Time,
			MemoryKiB:  DefaultArgon2MemoryKiB,
			Threads:    DefaultArgon2Threads,
			KeyLen:     DefaultArgon2KeyLen,
		}
	case AlgorithmPlain:
		return Params{Algorithm: alg}
	default:
		return Params{
			Algorithm:  AlgorithmPBKDF2SHA512,
			Iterations: DefaultPBKDF2Iterations,
			KeyLen:     DefaultPBKDF2KeyLen,
		}
	}
}

// Validate checks that the work factors are usable.
func (p Params) Validate() error {
	switch p.Algorithm {
	case AlgorithmPBKDF2SHA512:
		if p.Iterations < 1 {
			return fmt.Errorf("%w: iterations must be at least 1, got %d", ErrInvalidParams, p.Iterations)
		}
		if p.KeyLen < 1 {
			return fmt.Errorf("%w: key length must be positive", ErrInvalidParams)
		}
	case AlgorithmBcrypt:
		if p.Cost < bcrypt.MinCost || p.Cost > bcrypt.MaxCost {
			return fmt.Errorf("%w: bcrypt cost must be between %d and %d, got %d",
				ErrInvalidParams, bcrypt.MinCost, bcrypt.MaxCost, p.Cost)
		}
	case AlgorithmArgon2id:
		if p.Iterations < 1 {
			return fmt.Errorf("%w: argon2 time must be at least 1", ErrInvalidParams)
		}
		if p.Threads < 1 {
			return fmt.Errorf("%w: argon2 threads must be at least 1", ErrInvalidParams)
		}
		if p.MemoryKiB < 8*uint32(p.Threads) {
			return fmt.Errorf("%w: argon2 memory must be at least 8 KiB per thread", ErrInvalidParams)
		}
		if p.KeyLen < 16 {
			return fmt.Errorf("%w: argon2 key length must be at least 16 bytes", ErrInvalidParams)
		}
	case AlgorithmPlain:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, p.Algorithm)
	}
	return nil
}
