package config

import (
	"reflect"

	"github.com/invopop/jsonschema"

	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
)

// Schema returns the JSON schema of the configuration document.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{Mapper: mapType}
	return r.Reflect(&File{})
}

// mapType describes the types that encode themselves as strings.
func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(Duration(0)):
		return &jsonschema.Schema{Type: "string", Description: "Go duration such as \"90s\""}
	case reflect.TypeOf(layout.NamingStem):
		return &jsonschema.Schema{
			Type: "string",
			Enum: []interface{}{layout.NamingStem.String(), layout.NamingStemDensity.String()},
		}
	case reflect.TypeOf(logging.INFO):
		return &jsonschema.Schema{
			Type: "string",
			Enum: []interface{}{"debug", "info", "warn", "error"},
		}
	}
	return nil
}
