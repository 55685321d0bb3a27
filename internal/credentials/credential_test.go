// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package credentials

import (
	"errors"
	"strings"
	"testing"
)

// Hashes produced by the legacy generator for salt "salt" and 100 iterations.
const (
	pass1Credential = "c2FsdA==:100:MAK8JjJQh/c4uYbwkAm33TRXCbeuBC+meeK9ww3Mu4KTv08+8ywTKgF24MNHotOESjDmsutrEk+38PaZVX2TFA=="
	pass2Credential = "c2FsdA==:100:99RGrFfo+l2fQ+KTeSdM/5SZBAJlxj25jzwfAfNeqCe4+9ejGBSEue1w005Uq3+aoZKn89JXNQU8hgHKneu0Dw=="
)

// fastArgon2 keeps argon2id tests quick.
var fastArgon2 = Params{Algorithm: AlgorithmArgon2id, Iterations: 1, MemoryKiB: 64, Threads: 1, KeyLen: 16}

func TestVerify_LegacyPBKDF2(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		password string
		want     bool
	}{
		{"pass1 matches", pass1Credential, "pass1", true},
		{"pass2 matches", pass2Credential, "pass2", true},
		{"pass2 against pass1 hash", pass1Credential, "pass2", false},
		{"empty password", pass1Credential, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := ParseCredential(tt.stored)
			if err != nil {
				t.Fatalf("ParseCredential() error = %v", err)
			}
			if cred.Params.Iterations != 100 {
				t.Errorf("Iterations = %d, want 100", cred.Params.Iterations)
			}
			if cred.Params.KeyLen != 64 {
				t.Errorf("KeyLen = %d, want 64", cred.Params.KeyLen)
			}
			if got := Verify([]byte(tt.password), cred); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	p := DefaultParams(AlgorithmPBKDF2SHA512)
	a, err := Hash([]byte("secret"), []byte("salt"), p)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, err := Hash([]byte("secret"), []byte("salt"), p)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if string(a) != string(b) {
		t.Error("Hash() should be deterministic for identical inputs")
	}

	c, err := Hash([]byte("secret"), []byte("pepper"), p)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if string(a) == string(c) {
		t.Error("Hash() should differ for different salts")
	}
}

func TestHash_BcryptRejected(t *testing.T) {
	_, err := Hash([]byte("x"), []byte("salt"), DefaultParams(AlgorithmBcrypt))
	if !errors.Is(err, ErrSaltManaged) {
		t.Errorf("Hash(bcrypt) error = %v, want ErrSaltManaged", err)
	}
}

func TestGenerate_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		prefix string
	}{
		{"pbkdf2", DefaultParams(AlgorithmPBKDF2SHA512), ""},
		{"bcrypt", Params{Algorithm: AlgorithmBcrypt, Cost: 4}, "$2a$04$"},
		{"argon2id", fastArgon2, "$argon2id$v=19$m=64,t=1,p=1$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := Generate([]byte("hunter2"), tt.params)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			stored := cred.String()
			if !strings.HasPrefix(stored, tt.prefix) {
				t.Errorf("String() = %q, want prefix %q", stored, tt.prefix)
			}

			parsed, err := ParseCredential(stored)
			if err != nil {
				t.Fatalf("ParseCredential(%q) error = %v", stored, err)
			}
			if parsed.Params.Algorithm != tt.params.Algorithm {
				t.Errorf("Algorithm = %s, want %s", parsed.Params.Algorithm, tt.params.Algorithm)
			}
			if !Verify([]byte("hunter2"), parsed) {
				t.Error("Verify() rejected the generated password")
			}
			if Verify([]byte("hunter3"), parsed) {
				t.Error("Verify() accepted a wrong password")
			}
		})
	}
}

func TestGenerateWithSalt_MatchesLegacyFormat(t *testing.T) {
	cred, err := GenerateWithSalt([]byte("pass1"), []byte("salt"), DefaultParams(AlgorithmPBKDF2SHA512))
	if err != nil {
		t.Fatalf("GenerateWithSalt() error = %v", err)
	}
	if got := cred.String(); got != pass1Credential {
		t.Errorf("String() = %q, want %q", got, pass1Credential)
	}
}

func TestParseCredential_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrMalformedCredential},
		{"two sections", "c2FsdA==:100", ErrMalformedCredential},
		{"bad salt", "!!!:100:aGFzaA==", ErrMalformedCredential},
		{"bad iterations", "c2FsdA==:abc:aGFzaA==", ErrMalformedCredential},
		{"zero iterations", "c2FsdA==:0:aGFzaA==", ErrInvalidParams},
		{"bad hash", "c2FsdA==:100:***", ErrMalformedCredential},
		{"truncated bcrypt", "$2a$10$short", ErrMalformedCredential},
		{"argon2 wrong version", "$argon2id$v=16$m=64,t=1,p=1$c2FsdA$aGFzaGhhc2hoYXNoaGFzaA", ErrMalformedCredential},
		{"argon2 missing section", "$argon2id$v=19$m=64,t=1,p=1$c2FsdA", ErrMalformedCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCredential(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseCredential(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestPlain(t *testing.T) {
	cred, err := ParsePlain("pass1")
	if err != nil {
		t.Fatalf("ParsePlain() error = %v", err)
	}
	if !Verify([]byte("pass1"), cred) {
		t.Error("Verify() rejected the plain password")
	}
	if Verify([]byte("pass2"), cred) {
		t.Error("Verify() accepted a wrong plain password")
	}
	if _, err := ParsePlain(""); !errors.Is(err, ErrMalformedCredential) {
		t.Errorf("ParsePlain(\"\") error = %v, want ErrMalformedCredential", err)
	}
}

func TestVerify_PlainLengths(t *testing.T) {
	cred, err := ParsePlain("pass1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"exact", "pass1", true},
		{"same length", "pass2", false},
		{"prefix", "pass", false},
		{"longer", "pass1pass1", false},
		{"empty", "", false},
		{"case differs", "PASS1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify([]byte(tt.input), cred); got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecoy_NeverVerifies(t *testing.T) {
	for _, p := range []Params{
		DefaultParams(AlgorithmPBKDF2SHA512),
		{Algorithm: AlgorithmBcrypt, Cost: 4},
		fastArgon2,
		DefaultParams(AlgorithmPlain),
	} {
		t.Run(p.Algorithm.String(), func(t *testing.T) {
			decoy, err := Decoy(p)
			if err != nil {
				t.Fatalf("Decoy() error = %v", err)
			}
			if decoy.Params.Algorithm != p.Algorithm {
				t.Errorf("Algorithm = %s, want %s", decoy.Params.Algorithm, p.Algorithm)
			}
			for _, guess := range []string{"", "password", string(decoy.Salt)} {
				if Verify([]byte(guess), decoy) {
					t.Errorf("Verify(%q) succeeded against decoy", guess)
				}
			}
		})
	}
}

func TestNewSalt(t *testing.T) {
	salt, err := NewSalt(DefaultSaltLength)
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}
	if len(salt) != DefaultSaltLength {
		t.Errorf("len(salt) = %d, want %d", len(salt), DefaultSaltLength)
	}
	for _, c := range salt {
		if !strings.ContainsRune(saltAlphabet, rune(c)) {
			t.Errorf("salt contains non-alphanumeric byte %q", c)
		}
	}

	other, err := NewSalt(DefaultSaltLength)
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}
	if string(salt) == string(other) {
		t.Error("two salts should not be equal")
	}

	if _, err := NewSalt(0); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("NewSalt(0) error = %v, want ErrInvalidParams", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"pbkdf2-sha512", AlgorithmPBKDF2SHA512, false},
		{"BCRYPT", AlgorithmBcrypt, false},
		{" argon2id ", AlgorithmArgon2id, false},
		{"plain", AlgorithmPlain, false},
		{"md5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"default pbkdf2", DefaultParams(AlgorithmPBKDF2SHA512), false},
		{"default bcrypt", DefaultParams(AlgorithmBcrypt), false},
		{"default argon2id", DefaultParams(AlgorithmArgon2id), false},
		{"pbkdf2 zero iterations", Params{Algorithm: AlgorithmPBKDF2SHA512, KeyLen: 64}, true},
		{"bcrypt cost too low", Params{Algorithm: AlgorithmBcrypt, Cost: 1}, true},
		{"argon2 no threads", Params{Algorithm: AlgorithmArgon2id, Iterations: 1, MemoryKiB: 64, KeyLen: 32}, true},
		{"argon2 short key", Params{Algorithm: AlgorithmArgon2id, Iterations: 1, MemoryKiB: 64, Threads: 1, KeyLen: 8}, true},
		{"unknown algorithm", Params{Algorithm: Algorithm(42)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
