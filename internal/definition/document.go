// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package definition

import (
	"encoding/xml"
	"strings"
)

// document mirrors the XML layout of the access definition file. Every
// element carries an Unknown catch-all so misspelled elements are reported
// instead of silently falling back to defaults.
type document struct {
	XMLName xml.Name         `xml:"file-rbac"`
	Users   usersElement     `xml:"users"`
	Roles   rolesElement     `xml:"roles"`
	Unknown []unknownElement `xml:",any"`
}

// unknownElement records the name of an element the schema does not know.
type unknownElement struct {
	XMLName xml.Name
}

type usersElement struct {
	User    []userElement    `xml:"user"`
	Unknown []unknownElement `xml:",any"`
}

type rolesElement struct {
	Role    []roleElement    `xml:"role"`
	Unknown []unknownElement `xml:",any"`
}

type userElement struct {
	Name     string           `xml:"name" validate:"required,mqtt_nowild"`
	Password string           `xml:"password" validate:"required"`
	Roles    roleRefsElement  `xml:"roles"`
	Unknown  []unknownElement `xml:",any"`
}

type roleRefsElement struct {
	ID      []string         `xml:"id"`
	Unknown []unknownElement `xml:",any"`
}

type roleElement struct {
	ID          string             `xml:"id" validate:"required"`
	Permissions permissionsElement `xml:"permissions"`
	Unknown     []unknownElement   `xml:",any"`
}

type permissionsElement struct {
	Permission []permissionElement `xml:"permission"`
	Unknown    []unknownElement    `xml:",any"`
}

type permissionElement struct {
	Topic              string           `xml:"topic" validate:"required"`
	Activity           string           `xml:"activity" validate:"omitempty,oneof=PUBLISH SUBSCRIBE ALL"`
	Effect             string           `xml:"effect" validate:"omitempty,oneof=ALLOW DENY"`
	QoS                string           `xml:"qos"`
	Retain             string           `xml:"retain" validate:"omitempty,oneof=ALL RETAINED NOT_RETAINED"`
	SharedSubscription string           `xml:"shared-subscription" validate:"omitempty,oneof=ALL SHARED NOT_SHARED"`
	SharedGroup        string           `xml:"shared-group"`
	Unknown            []unknownElement `xml:",any"`
}

// unknownNames lists the local names of unknown elements as "<name>".
func unknownNames(elems []unknownElement) []string {
	names := make([]string, len(elems))
	for i, el := range elems {
		names[i] = "<" + el.XMLName.Local + ">"
	}
	return names
}

// normalize trims whitespace and upper-cases enum values so that
// "publish" and " PUBLISH " are equivalent.
func (d *document) normalize() {
	for i := range d.Users.User {
		u := &d.Users.User[i]
		u.Name = strings.TrimSpace(u.Name)
		u.Password = strings.TrimSpace(u.Password)
		for j := range u.Roles.ID {
			u.Roles.ID[j] = strings.TrimSpace(u.Roles.ID[j])
		}
	}
	for i := range d.Roles.Role {
		r := &d.Roles.Role[i]
		r.ID = strings.TrimSpace(r.ID)
		for j := range r.Permissions.Permission {
			p := &r.Permissions.Permission[j]
			p.Topic = strings.TrimSpace(p.Topic)
			p.Activity = enumValue(p.Activity)
			p.Effect = enumValue(p.Effect)
			p.QoS = enumValue(p.QoS)
			p.Retain = enumValue(p.Retain)
			p.SharedSubscription = enumValue(p.SharedSubscription)
			p.SharedGroup = strings.TrimSpace(p.SharedGroup)
		}
	}
}

func enumValue(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
