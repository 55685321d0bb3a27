// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type publishRequest struct {
	ClientID string `json:"client_id" validate:"required,mqtt_nowild"`
	Topic    string `json:"topic" validate:"required,mqtt_topic"`
	QoS      uint8  `json:"qos" validate:"lte=2"`
}

type subscribeRequest struct {
	Filter string `json:"filter" validate:"required,mqtt_filter"`
}

type xmlElement struct {
	Roles []string `xml:"roles>id" validate:"required,min=1"`
	Mode  string   `xml:"mode" validate:"omitempty,oneof=A B"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"publish", &publishRequest{ClientID: "c1", Topic: "a/b", QoS: 2}},
		{"subscribe with wildcards", &subscribeRequest{Filter: "a/+/#"}},
		{"xml element", &xmlElement{Roles: []string{"1"}, Mode: "A"}},
		{"xml element empty optional", &xmlElement{Roles: []string{"1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() = %v, want nil", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{
			name:      "missing client id",
			input:     &publishRequest{Topic: "a"},
			wantField: "client_id",
			wantTag:   "required",
			wantMsg:   "client_id is required",
		},
		{
			name:      "wildcard client id",
			input:     &publishRequest{ClientID: "c+", Topic: "a"},
			wantField: "client_id",
			wantTag:   "mqtt_nowild",
			wantMsg:   "client_id must not contain '+' or '#'",
		},
		{
			name:      "wildcard in topic name",
			input:     &publishRequest{ClientID: "c", Topic: "a/#"},
			wantField: "topic",
			wantTag:   "mqtt_topic",
			wantMsg:   "topic must be a valid MQTT topic name",
		},
		{
			name:      "qos out of range",
			input:     &publishRequest{ClientID: "c", Topic: "a", QoS: 3},
			wantField: "qos",
			wantTag:   "lte",
			wantMsg:   "qos must be less than or equal to 2",
		},
		{
			name:      "hash not last",
			input:     &subscribeRequest{Filter: "a/#/b"},
			wantField: "filter",
			wantTag:   "mqtt_filter",
			wantMsg:   "filter must be a valid MQTT topic filter",
		},
		{
			name:      "xml path reports leaf",
			input:     &xmlElement{Roles: []string{}},
			wantField: "id",
			wantTag:   "min",
		},
		{
			name:      "oneof",
			input:     &xmlElement{Roles: []string{"1"}, Mode: "C"},
			wantField: "mode",
			wantTag:   "oneof",
			wantMsg:   "mode must be one of: A B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			e := errs[0]
			if e.Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", e.Field(), tt.wantField)
			}
			if e.Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", e.Tag(), tt.wantTag)
			}
			if tt.wantMsg != "" && e.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", e.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRequestValidationError_Aggregates(t *testing.T) {
	verr := ValidateStruct(&publishRequest{QoS: 5})
	if verr == nil {
		t.Fatal("expected errors")
	}
	if len(verr.Errors()) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(verr.Errors()), verr)
	}

	fields := verr.Fields()
	for _, f := range []string{"client_id", "topic", "qos"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("Fields() missing %q", f)
		}
	}
	if !strings.Contains(verr.Error(), "; ") {
		t.Errorf("Error() = %q, want joined messages", verr.Error())
	}

	empty := &RequestValidationError{}
	if empty.Error() != "validation failed" {
		t.Errorf("empty Error() = %q", empty.Error())
	}
}
