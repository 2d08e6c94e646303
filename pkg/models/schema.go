package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema describes the expected shape of a node type's configuration
// payload.
type JSONSchema struct {
	Type        string               `json:"type"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property represents a JSON Schema property.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Format      string               `json:"format,omitempty"`
	MinLength   *int                 `json:"minLength,omitempty"`
	Pattern     string               `json:"pattern,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// nodeConfigSchemas maps each node type to the schema its Data payload must
// satisfy once configured. INITIAL and MANUAL_TRIGGER carry no configuration,
// so any object is accepted there.
var nodeConfigSchemas = map[NodeType]*JSONSchema{
	NodeTypeInitial: {
		Type:        "object",
		Title:       "Initial Placeholder",
		Description: "Seeded at workflow creation, replaced by the first real node",
	},
	NodeTypeManualTrigger: {
		Type:        "object",
		Title:       "Manual Trigger",
		Description: "Starts the workflow on explicit user action",
	},
	NodeTypeHTTPRequest: {
		Type:        "object",
		Title:       "HTTP Request",
		Description: "Performs an HTTP call",
		Properties: map[string]*Property{
			"url": {
				Type:        "string",
				Description: "Endpoint to call",
			},
			"method": {
				Type:        "string",
				Description: "HTTP method",
				Enum:        []any{"GET", "POST", "PUT", "PATCH", "DELETE"},
				Default:     "GET",
			},
			"body": {
				Type:        "string",
				Description: "Request body template",
			},
		},
	},
}

// NodeConfigSchema returns the configuration schema for a node type, or nil
// for unknown types.
func NodeConfigSchema(t NodeType) *JSONSchema {
	return nodeConfigSchemas[t]
}

// ValidateNodeConfig checks a node's opaque configuration payload against the
// schema registered for its type. An empty payload is always accepted: nodes
// start unconfigured and gain configuration through editor patches.
func ValidateNodeConfig(t NodeType, data map[string]any) error {
	if !t.Valid() {
		return fmt.Errorf("unknown node type %q", t)
	}

	if len(data) == 0 {
		return nil
	}

	schemaJSON, err := json.Marshal(nodeConfigSchemas[t])
	if err != nil {
		return fmt.Errorf("failed to marshal schema for %s: %w", t, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(data),
	)
	if err != nil {
		return fmt.Errorf("failed to validate %s configuration: %w", t, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("invalid %s configuration: %s", t, strings.Join(details, "; "))
	}

	return nil
}
