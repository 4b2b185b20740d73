package api

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contractDocument []byte

// Contract checks backend responses against an OpenAPI 3 document.
type Contract struct {
	doc *openapi3.T
}

// LoadContract parses and validates an OpenAPI document.
func LoadContract(data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	return &Contract{doc: doc}, nil
}

var (
	defaultContract     *Contract
	defaultContractErr  error
	defaultContractOnce sync.Once
)

// DefaultContract returns the embedded backend contract.
func DefaultContract() (*Contract, error) {
	defaultContractOnce.Do(func() {
		defaultContract, defaultContractErr = LoadContract(contractDocument)
	})
	return defaultContract, defaultContractErr
}

// ValidateResponse checks a decoded JSON body for method and path at the given
// status. Statuses the document does not describe fall back to its default
// response; with neither, the body is rejected.
func (c *Contract) ValidateResponse(method, path string, status int, body any) error {
	item := c.doc.Paths.Find(path)
	if item == nil {
		return fmt.Errorf("path %s is not described", path)
	}

	op := item.GetOperation(method)
	if op == nil || op.Responses == nil {
		return fmt.Errorf("operation %s %s is not described", method, path)
	}

	ref := op.Responses.Status(status)
	if ref == nil {
		ref = op.Responses.Default()
	}
	if ref == nil || ref.Value == nil {
		return fmt.Errorf("status %d is not described for %s %s", status, method, path)
	}

	media := ref.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}

	if err := media.Schema.Value.VisitJSON(body); err != nil {
		return fmt.Errorf("response body does not match schema: %w", err)
	}
	return nil
}
