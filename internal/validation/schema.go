package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mlbench/benchdash/schemas"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// recordSchema is the compiled JSON Schema for raw benchmark records.
var recordSchema *jsonschema.Schema

// configSchema is the compiled JSON Schema for .benchdash.yaml files.
var configSchema *jsonschema.Schema

func init() {
	recordSchema = mustCompileSchema(schemas.RawRecordSchemaJSON, "raw_record.schema.json")
	configSchema = mustCompileSchema(schemas.ConfigSchemaJSON, "config.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Problem is one schema violation at a location inside the instance.
type Problem struct {
	// Path is slash separated, "/" for the document root.
	Path    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Path, p.Message)
}

// Field returns the top-level property the problem belongs to, or "" when
// it concerns the document root.
func (p Problem) Field() string {
	trimmed := strings.TrimPrefix(p.Path, "/")
	if trimmed == "" {
		return ""
	}
	field, _, _ := strings.Cut(trimmed, "/")
	return field
}

// ValidateRawRecord checks a provider record against the raw record schema.
// The record may contain any Go values that encode to JSON.
func ValidateRawRecord(rec map[string]any) []Problem {
	instance, err := toJSONValue(rec)
	if err != nil {
		return []Problem{{Path: "/", Message: err.Error()}}
	}
	return validateAgainstSchema(recordSchema, instance)
}

// ValidateConfigFile validates a .benchdash.yaml file at the given path.
func ValidateConfigFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ValidateConfigBytes(data), nil
}

// ValidateConfigBytes validates raw YAML bytes against the config schema.
// An empty document is valid.
func ValidateConfigBytes(data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	if yamlDoc == nil {
		return nil
	}
	instance, err := toJSONValue(yamlDoc)
	if err != nil {
		return []string{err.Error()}
	}
	problems := validateAgainstSchema(configSchema, instance)
	if len(problems) == 0 {
		return nil
	}
	out := make([]string, len(problems))
	for i, p := range problems {
		out[i] = p.String()
	}
	return out
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []Problem {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Problem{{Path: "/", Message: fmt.Sprintf("schema: %v", err)}}
	}
	var problems []Problem
	collectSchemaErrors(ve, &problems)
	return problems
}

func collectSchemaErrors(ve *jsonschema.ValidationError, problems *[]Problem) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*problems = append(*problems, Problem{Path: loc, Message: ve.ErrorKind.LocalizedString(defaultPrinter)})
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, problems)
	}
}

// toJSONValue round-trips v through encoding/json so the validator only sees
// the value types a JSON decoder produces (typed slices, integer widths and
// time.Time values from providers become []any, float64 and string).
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding instance: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding instance: %w", err)
	}
	return out, nil
}
