// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

/*
Package credentials derives and verifies salted password hashes stored in the
access definition file.

# Stored Formats

Four algorithms are recognised. The stored form identifies the algorithm:

	PBKDF2-HMAC-SHA512   base64(salt):iterations:base64(hash)
	bcrypt               $2a$10$... (modular crypt, salt embedded)
	argon2id             $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	plain                the password itself (PLAIN password type only)

PBKDF2 is the default and matches credentials produced by the rbac-passwd
command. Its digest length is taken from the stored hash, so 512-bit hashes
written by older tooling keep verifying.

# Verification

Verify recomputes the digest with the stored salt and parameters and compares
with crypto/subtle. Decoy builds a credential with the same cost as a real one
that never verifies; the engine hashes unknown usernames against it so a
missing account takes as long to reject as a wrong password.

# Usage

	cred, err := credentials.Generate([]byte("secret"), credentials.DefaultParams(credentials.AlgorithmPBKDF2SHA512))
	if err != nil {
	    return err
	}
	stored := cred.String()

	parsed, err := credentials.ParseCredential(stored)
	if err != nil {
	    return err
	}
	ok := credentials.Verify([]byte("secret"), parsed)
*/
package credentials
