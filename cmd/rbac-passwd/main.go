// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Command rbac-passwd prints the stored form of a password for the
// <password> element of an access definition.
//
//	rbac-passwd -p secret
//	rbac-passwd -p secret -s salt -i 100 -q
//	rbac-passwd -p secret -a argon2id
//	rbac-passwd -p secret -config /etc/mqtt-file-rbac/config.yaml
//
// Without -s a random 32 character alphanumeric salt is used. With
// -config the work factors come from the hash section of the daemon's
// configuration; explicit flags still win.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tomtom215/mqtt-file-rbac/internal/config"
	"github.com/tomtom215/mqtt-file-rbac/internal/credentials"
)

const banner = "Add the following string as password to your credentials configuration file:\n" +
	"----------------------------------------------------------------------------"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	password   string
	salt       string
	iterations int
	algorithm  string
	cost       int
	memoryKiB  uint
	configPath string
	quiet      bool
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("rbac-passwd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	for _, name := range []string{"p", "password"} {
		fs.StringVar(&opts.password, name, "", "the password to hash (required)")
	}
	for _, name := range []string{"s", "salt"} {
		fs.StringVar(&opts.salt, name, "", "salt to hash with (default: random)")
	}
	for _, name := range []string{"i", "iterations"} {
		fs.IntVar(&opts.iterations, name, credentials.DefaultPBKDF2Iterations, "PBKDF2 iterations or argon2 time cost")
	}
	for _, name := range []string{"a", "algorithm"} {
		fs.StringVar(&opts.algorithm, name, "pbkdf2-sha512", "pbkdf2-sha512, bcrypt or argon2id")
	}
	fs.IntVar(&opts.cost, "cost", credentials.DefaultBcryptCost, "bcrypt cost")
	fs.UintVar(&opts.memoryKiB, "memory", credentials.DefaultArgon2MemoryKiB, "argon2 memory in KiB")
	fs.StringVar(&opts.configPath, "config", "", "take work factors from this config file's hash section")
	fs.BoolVar(&opts.quiet, "q", false, "only print the hash string")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	stored, err := generate(opts, set)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if !opts.quiet {
		fmt.Fprintln(stdout, banner)
	}
	fmt.Fprintln(stdout, stored)
	return 0
}

func generate(opts options, set map[string]bool) (string, error) {
	if opts.password == "" {
		return "", errors.New("required parameter password missing")
	}

	p, err := params(opts, set)
	if err != nil {
		return "", err
	}

	salt := []byte(opts.salt)
	if !set["s"] && !set["salt"] {
		if salt, err = credentials.NewSalt(credentials.DefaultSaltLength); err != nil {
			return "", fmt.Errorf("could not generate random salt: %w", err)
		}
	}

	cred, err := credentials.GenerateWithSalt([]byte(opts.password), salt, p)
	if err != nil {
		return "", err
	}
	return cred.String(), nil
}

// params resolves the work factors: defaults or the config file first,
// then any flag given on the command line.
func params(opts options, set map[string]bool) (credentials.Params, error) {
	var p credentials.Params
	if opts.configPath != "" {
		cfg, err := config.LoadFile(opts.configPath)
		if err != nil {
			return p, err
		}
		if p, err = cfg.Hash.Params(); err != nil {
			return p, err
		}
	} else {
		p = credentials.DefaultParams(credentials.AlgorithmPBKDF2SHA512)
	}

	if set["a"] || set["algorithm"] {
		alg, err := credentials.ParseAlgorithm(opts.algorithm)
		if err != nil {
			return p, err
		}
		if alg == credentials.AlgorithmPlain {
			return p, fmt.Errorf("%w: plain passwords need no generator", credentials.ErrUnsupportedAlgorithm)
		}
		if alg != p.Algorithm {
			p = credentials.DefaultParams(alg)
		}
	}

	if set["i"] || set["iterations"] {
		if opts.iterations < 1 {
			return p, errors.New("iterations must be larger than 0")
		}
		p.Iterations = opts.iterations
	}
	if set["cost"] {
		p.Cost = opts.cost
	}
	if set["memory"] {
		if opts.memoryKiB > math.MaxUint32 {
			return p, fmt.Errorf("memory must be at most %d KiB", uint32(math.MaxUint32))
		}
		p.MemoryKiB = uint32(opts.memoryKiB)
	}
	return p, p.Validate()
}
