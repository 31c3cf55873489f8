// Package apiv1 serves the CodeCraft gateway routes. Wire models are generated
// from api/openapi.yaml.
package apiv1

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen --config=cfg.yaml ../../../../api/openapi.yaml
