// Package spec embeds the OpenAPI document served to API consumers and the
// swagger UI.
package spec

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.yaml
var openapiDoc []byte

// OpenAPIHandler serves the embedded OpenAPI document.
func OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapiDoc)
	}
}
