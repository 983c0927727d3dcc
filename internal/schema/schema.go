// Package schema validates provider JSON payloads against embedded JSON
// Schemas before they are decoded into domain types.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed analysis_result.schema.json
var analysisResultSchema []byte

//go:embed labeling_response.schema.json
var labelingResponseSchema []byte

// Validator checks documents against one compiled schema.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// Compile builds a Validator from raw schema JSON.
func Compile(name string, raw []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Validator{name: name, schema: s}, nil
}

func mustCompile(name string, raw []byte) *Validator {
	v, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Built-in validators for provider responses.
var (
	AnalysisResult   = mustCompile("analysis_result.schema.json", analysisResultSchema)
	LabelingResponse = mustCompile("labeling_response.schema.json", labelingResponseSchema)
)

// Validate checks data against the schema.
func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match %s: %w", v.name, err)
	}
	return nil
}

// Decode validates data and then unmarshals it into out.
func (v *Validator) Decode(data []byte, out any) error {
	if err := v.Validate(data); err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Raw returns the schema source, for embedding in provider prompts.
func (v *Validator) Raw() string {
	switch v {
	case AnalysisResult:
		return string(analysisResultSchema)
	case LabelingResponse:
		return string(labelingResponseSchema)
	}
	return ""
}
