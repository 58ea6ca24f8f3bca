package devices

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/module-catalog-v1.json
var moduleCatalogSchemaJSON string

//go:embed schema/block-v1.json
var blockSchemaJSON string

type Validator struct {
	catalog *jsonschema.Schema
	block   *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	catalog, err := compileSchema("module-catalog-v1.json", moduleCatalogSchemaJSON)
	if err != nil {
		return nil, err
	}

	block, err := compileSchema("block-v1.json", blockSchemaJSON)
	if err != nil {
		return nil, err
	}

	return &Validator{catalog: catalog, block: block}, nil
}

func compileSchema(name, source string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource %s: %w", name, err)
	}

	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	return schema, nil
}

// ValidateCatalog checks a module catalog document given as JSON.
func (v *Validator) ValidateCatalog(data []byte) error {
	return validate(v.catalog, data)
}

// ValidateBlock checks a block layout document given as JSON.
func (v *Validator) ValidateBlock(data []byte) error {
	return validate(v.block, data)
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}
