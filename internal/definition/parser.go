// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package definition parses and validates the XML access definition file
// into an immutable rbac.Snapshot, and archives superseded definitions.
package definition

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/mqtt-file-rbac/internal/credentials"
	"github.com/tomtom215/mqtt-file-rbac/internal/rbac"
	"github.com/tomtom215/mqtt-file-rbac/internal/topic"
	"github.com/tomtom215/mqtt-file-rbac/internal/validation"
)

// ErrDefinitionInvalid is returned when the definition cannot be used.
var ErrDefinitionInvalid = errors.New("access definition invalid")

// ValidationError lists every problem found in a definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDefinitionInvalid, strings.Join(e.Problems, "; "))
}

// Unwrap lets errors.Is match ErrDefinitionInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrDefinitionInvalid
}

// PasswordType selects how user passwords are stored.
type PasswordType int

const (
	// PasswordHashed stores credentials in a credentials package format.
	PasswordHashed PasswordType = iota
	// PasswordPlain stores passwords verbatim.
	PasswordPlain
)

func (p PasswordType) String() string {
	if p == PasswordPlain {
		return "PLAIN"
	}
	return "HASHED"
}

// ParsePasswordType converts HASHED or PLAIN (any case) to a PasswordType.
func ParsePasswordType(s string) (PasswordType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "HASHED":
		return PasswordHashed, nil
	case "PLAIN":
		return PasswordPlain, nil
	default:
		return 0, fmt.Errorf("unknown password type %q", s)
	}
}

// Options controls parsing.
type Options struct {
	PasswordType PasswordType
}

// Parse decodes and validates raw. All problems are reported together in a
// *ValidationError; on success the returned snapshot has Version 0 until
// it is installed.
func Parse(raw []byte, opts Options) (*rbac.Snapshot, error) {
	var doc document
	dec := xml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDefinitionInvalid, err)
	}
	doc.normalize()

	v := &validator{opts: opts}
	v.trailingContent(dec)
	v.unknown("file-rbac", doc.Unknown)
	v.unknown("users", doc.Users.Unknown)
	v.unknown("roles", doc.Roles.Unknown)
	roles := v.roles(doc.Roles.Role)
	users := v.users(doc.Users.User, roles)
	if len(v.problems) > 0 {
		return nil, &ValidationError{Problems: v.problems}
	}

	decoy, err := credentials.Decoy(commonParams(users))
	if err != nil {
		return nil, fmt.Errorf("build decoy credential: %w", err)
	}

	sum := sha256.Sum256(raw)
	return &rbac.Snapshot{
		Users:    users,
		Roles:    roles,
		Decoy:    decoy,
		LoadedAt: time.Now(),
		Digest:   hex.EncodeToString(sum[:]),
	}, nil
}

// validator accumulates problems while converting the document.
type validator struct {
	opts     Options
	problems []string
}

func (v *validator) addf(format string, args ...interface{}) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// trailingContent records a problem unless only whitespace and comments
// follow the <file-rbac> root.
func (v *validator) trailingContent(dec *xml.Decoder) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			v.addf("Malformed content after </file-rbac>: %v", err)
			return
		}
		switch t := tok.(type) {
		case xml.Comment:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				v.addf("Unexpected text after </file-rbac>")
				return
			}
		case xml.StartElement:
			v.addf("Unexpected element <%s> after </file-rbac>", t.Name.Local)
			return
		default:
			v.addf("Unexpected content after </file-rbac>")
			return
		}
	}
}

// unknown records every unknown element found in context and reports
// whether there was any.
func (v *validator) unknown(context string, elems []unknownElement) bool {
	for _, name := range unknownNames(elems) {
		v.addf("Unknown element %s in %s", name, context)
	}
	return len(elems) > 0
}

// structProblems runs the tag-based checks and records each failure with
// the given context prefix.
func (v *validator) structProblems(context string, s interface{}) bool {
	verr := validation.ValidateStruct(s)
	if verr == nil {
		return false
	}
	for _, fe := range verr.Errors() {
		v.addf("%s: %s", context, fe.Error())
	}
	return true
}

func (v *validator) roles(elems []roleElement) map[string]*rbac.Role {
	if len(elems) == 0 {
		v.addf("No Roles found in configuration file")
		return nil
	}

	roles := make(map[string]*rbac.Role, len(elems))
	for i := range elems {
		el := &elems[i]
		if el.ID == "" {
			v.addf("A Role is missing an ID")
			continue
		}
		if _, dup := roles[el.ID]; dup {
			v.addf("Duplicate ID '%s' for role", el.ID)
			continue
		}
		v.unknown(fmt.Sprintf("role with id '%s'", el.ID), el.Unknown)
		v.unknown(fmt.Sprintf("permissions of role with id '%s'", el.ID), el.Permissions.Unknown)
		if len(el.Permissions.Permission) == 0 {
			v.addf("Role '%s' is missing permissions", el.ID)
			continue
		}

		role := &rbac.Role{ID: el.ID, Permissions: make([]rbac.Permission, 0, len(el.Permissions.Permission))}
		for j := range el.Permissions.Permission {
			if p, ok := v.permission(el.ID, j, &el.Permissions.Permission[j]); ok {
				role.Permissions = append(role.Permissions, p)
			}
		}
		roles[el.ID] = role
	}
	return roles
}

func (v *validator) permission(roleID string, idx int, el *permissionElement) (rbac.Permission, bool) {
	context := fmt.Sprintf("Permission %d for role with id '%s'", idx+1, roleID)
	if v.unknown(context, el.Unknown) {
		return rbac.Permission{}, false
	}
	if el.Topic == "" {
		v.addf("A Permission for role with id '%s' is missing a topic filter", roleID)
		return rbac.Permission{}, false
	}
	if v.structProblems(context, el) {
		return rbac.Permission{}, false
	}

	p := rbac.Permission{
		Filter:      el.Topic,
		Templated:   topic.HasPlaceholder(el.Topic),
		Activity:    rbac.ActivityAll,
		Effect:      rbac.EffectAllow,
		QoS:         rbac.AllQoS,
		Retain:      rbac.RetainAll,
		Shared:      rbac.SharedAll,
		SharedGroup: rbac.AnySharedGroup,
	}
	ok := true

	// Placeholders are checked with a neutral value standing in for the
	// substituted client ID and username.
	check := el.Topic
	if p.Templated {
		check = topic.Substitute(check, "x", "x")
	}
	if err := topic.ValidateFilter(check); err != nil {
		v.addf("Invalid topic filter '%s' in Permission for role with id '%s': %v", el.Topic, roleID, err)
		ok = false
	}

	switch el.Activity {
	case "PUBLISH":
		p.Activity = rbac.ActivityPublish
	case "SUBSCRIBE":
		p.Activity = rbac.ActivitySubscribe
	}
	if el.Effect == "DENY" {
		p.Effect = rbac.EffectDeny
	}

	if el.QoS != "" {
		r, err := parseQoS(el.QoS)
		if err != nil {
			v.addf("Invalid value for QoS in Permission for role with id '%s'", roleID)
			ok = false
		}
		p.QoS = r
	}

	switch el.Retain {
	case "RETAINED":
		p.Retain = rbac.RetainRetained
	case "NOT_RETAINED":
		p.Retain = rbac.RetainNotRetained
	}
	switch el.SharedSubscription {
	case "SHARED":
		p.Shared = rbac.SharedShared
	case "NOT_SHARED":
		p.Shared = rbac.SharedNotShared
	}

	if el.SharedGroup != "" {
		if el.SharedGroup != rbac.AnySharedGroup &&
			(topic.ContainsWildcard(el.SharedGroup) || strings.Contains(el.SharedGroup, topic.Separator)) {
			v.addf("Invalid value for Shared Group in Permission for role with id '%s'", roleID)
			ok = false
		}
		p.SharedGroup = el.SharedGroup
	}

	return p, ok
}

// qosNames maps the named QoS ranges to their bounds.
var qosNames = map[string]rbac.QoSRange{
	"ALL":      rbac.AllQoS,
	"ZERO":     {Min: 0, Max: 0},
	"ONE":      {Min: 1, Max: 1},
	"TWO":      {Min: 2, Max: 2},
	"ZERO_ONE": {Min: 0, Max: 1},
	"ONE_TWO":  {Min: 1, Max: 2},
}

// parseQoS accepts a named range, a single level ("1") or "min-max".
func parseQoS(s string) (rbac.QoSRange, error) {
	if r, ok := qosNames[s]; ok {
		return r, nil
	}
	lo, hi, isRange := strings.Cut(s, "-")
	if !isRange {
		hi = lo
	}
	minQoS, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 8)
	if err != nil {
		return rbac.QoSRange{}, fmt.Errorf("qos %q: %w", s, err)
	}
	maxQoS, err := strconv.ParseUint(strings.TrimSpace(hi), 10, 8)
	if err != nil {
		return rbac.QoSRange{}, fmt.Errorf("qos %q: %w", s, err)
	}
	r := rbac.QoSRange{Min: uint8(minQoS), Max: uint8(maxQoS)}
	if !r.Valid() {
		return rbac.QoSRange{}, fmt.Errorf("qos %q out of range", s)
	}
	return r, nil
}

func (v *validator) users(elems []userElement, roles map[string]*rbac.Role) map[string]*rbac.User {
	if len(elems) == 0 {
		v.addf("No Users found in configuration file")
		return nil
	}

	users := make(map[string]*rbac.User, len(elems))
	for i := range elems {
		el := &elems[i]
		if el.Name == "" {
			v.addf("A User is missing a name")
			continue
		}
		if el.Password == "" {
			v.addf("User '%s' is missing a password", el.Name)
			continue
		}
		if _, dup := users[el.Name]; dup {
			v.addf("Duplicate Name '%s' for user", el.Name)
			continue
		}
		context := fmt.Sprintf("User '%s'", el.Name)
		unknown := v.unknown(context, el.Unknown)
		if v.unknown("roles of "+context, el.Roles.Unknown) {
			unknown = true
		}
		if v.structProblems(context, el) || unknown {
			continue
		}

		cred, err := v.credential(el.Password)
		if err != nil {
			v.addf("User '%s' has invalid password: %v", el.Name, err)
		}

		if len(el.Roles.ID) == 0 {
			v.addf("User '%s' is missing roles", el.Name)
		}
		seen := make(map[string]struct{}, len(el.Roles.ID))
		for _, id := range el.Roles.ID {
			switch {
			case id == "":
				v.addf("Invalid role for user '%s'", el.Name)
			case roles != nil && roles[id] == nil:
				v.addf("Unknown role '%s' for user '%s'", id, el.Name)
			}
			if _, dup := seen[id]; dup {
				v.addf("Duplicate role '%s' for user '%s'", id, el.Name)
			}
			seen[id] = struct{}{}
		}

		users[el.Name] = &rbac.User{Name: el.Name, Credential: cred, Roles: el.Roles.ID}
	}
	return users
}

func (v *validator) credential(s string) (credentials.Credential, error) {
	if v.opts.PasswordType == PasswordPlain {
		return credentials.ParsePlain(s)
	}
	return credentials.ParseCredential(s)
}

// commonParams returns the work factors shared by most users so that
// unknown-user verification costs the same as a typical real one.
func commonParams(users map[string]*rbac.User) credentials.Params {
	counts := make(map[credentials.Params]int, 1)
	best := credentials.DefaultParams(credentials.AlgorithmPBKDF2SHA512)
	bestCount := 0
	for _, u := range users {
		p := u.Credential.Params
		counts[p]++
		if counts[p] > bestCount {
			best, bestCount = p, counts[p]
		}
	}
	return best
}
