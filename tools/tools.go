//go:build tools
// +build tools

// Pins oapi-codegen, which generates internal/infra/api/apiv1/models.gen.go.
package tools

import (
	_ "github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen"
)
