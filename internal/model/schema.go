package model

import (
	"sort"

	"github.com/invopop/jsonschema"
)

const (
	SchemaFactChange    = "fact-change"
	SchemaRePlanRequest = "replan-request"
)

var schemaTypes = map[string]any{
	SchemaFactChange:    &FactChange{},
	SchemaRePlanRequest: &RePlanRequest{},
}

// Schema returns the JSON Schema of an inbound payload published to fact
// sources and clients.
func Schema(name string) (*jsonschema.Schema, bool) {
	v, ok := schemaTypes[name]
	if !ok {
		return nil, false
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v), true
}

func SchemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
