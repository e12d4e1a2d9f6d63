package kernel

import (
	_ "embed"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// LoadOpenAPI parses and validates the embedded API description and returns it as JSON.
func LoadOpenAPI() ([]byte, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, errors.Wrap(err, "load openapi document")
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, errors.Wrap(err, "validate openapi document")
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encode openapi document")
	}
	return out, nil
}
