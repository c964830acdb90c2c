package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.schema.json
var schemaJSON []byte

const schemaURL = "scenario.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Schema returns the compiled scenario JSON Schema.
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("loading scenario schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validateDocument checks raw YAML against the scenario schema. The YAML tree is
// re-encoded as JSON first so the validator sees JSON types.
func validateDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing scenario: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("parsing scenario: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var jdoc any
	if err := dec.Decode(&jdoc); err != nil {
		return fmt.Errorf("parsing scenario: %w", err)
	}

	s, err := Schema()
	if err != nil {
		return err
	}
	if err := s.Validate(jdoc); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	return nil
}
