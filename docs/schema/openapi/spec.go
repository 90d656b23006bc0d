// Package openapi embeds the OpenAPI description of the portflow REST API.
package openapi

import _ "embed"

// Document is the OpenAPI 3 description served at /openapi.yaml.
//
//go:embed portflow.yaml
var Document []byte

// Spec returns a copy of the embedded document.
func Spec() []byte {
	return append([]byte(nil), Document...)
}
