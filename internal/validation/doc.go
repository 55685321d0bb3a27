// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by the definition parser, the
// configuration loader and the HTTP decision API. Field names in error
// messages come from the xml, json or koanf struct tag, so a problem is
// reported with the name the operator actually typed.
//
// # MQTT Validators
//
// Three tags are registered in addition to the built-in set:
//
//	mqtt_topic   a topic name (no wildcards)
//	mqtt_filter  a topic filter ('+' whole level, '#' last level only)
//	mqtt_nowild  a value without '+' or '#', such as a username
//
// # Usage
//
//	type publishRequest struct {
//	    ClientID string `json:"client_id" validate:"required,mqtt_nowild"`
//	    Topic    string `json:"topic" validate:"required,mqtt_topic"`
//	    QoS      uint8  `json:"qos" validate:"lte=2"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, verr.Error(), verr.Fields())
//	    return
//	}
package validation
