// Package api embeds the OpenAPI document served under /swagger.
package api

import _ "embed"

// OpenAPI is the raw openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
