package usecase

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ResourceSchema declares how the payload of one resource type is validated
// and normalized into a record.
type ResourceSchema[T any] struct {
	// Name is the schema file name under schemas/ without extension.
	Name string
	// Adjust patches bounds that depend on the current date into a copy of the
	// schema document before it is compiled.
	Adjust func(doc map[string]any, now time.Time)
	// Convert builds the record from a payload that already passed the schema.
	Convert func(normalized []byte, now time.Time) (T, domain.FieldErrors, error)
}

// SchemaService validates inbound payloads against a JSON Schema document and
// normalizes them into records. Compiled schemas are cached per calendar year
// because every moving bound is expressed in whole years or days checked by
// Convert.
type SchemaService[T any] struct {
	def        ResourceSchema[T]
	document   []byte
	required   []string
	properties map[string]bool
	now        func() time.Time
	cache      sync.Map // key: year → *santhosh.Schema
}

type SchemaOption func(*schemaOptions)

type schemaOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now as the source of the current date.
func WithClock(now func() time.Time) SchemaOption {
	return func(o *schemaOptions) { o.now = now }
}

func NewSchemaService[T any](def ResourceSchema[T], opts ...SchemaOption) (*SchemaService[T], error) {
	o := schemaOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := schemaFS.ReadFile("schemas/" + def.Name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read %s schema: %w", def.Name, err)
	}

	var doc struct {
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s schema: %w", def.Name, err)
	}

	s := &SchemaService[T]{
		def:        def,
		document:   raw,
		required:   doc.Required,
		properties: make(map[string]bool, len(doc.Properties)),
		now:        o.now,
	}
	for name := range doc.Properties {
		s.properties[name] = true
	}

	if _, err := s.compiled(s.now()); err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", def.Name, err)
	}
	return s, nil
}

// Validate checks payload against the schema and returns the normalized record.
// Schema violations are reported as *domain.ValidationError; a payload that is
// not a single JSON value wraps domain.ErrMalformedBody.
func (s *SchemaService[T]) Validate(payload []byte) (T, error) {
	var zero T

	doc, err := decodeDocument(payload)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", domain.ErrMalformedBody, err)
	}
	doc = trimStrings(doc)

	now := s.now()
	sch, err := s.compiled(now)
	if err != nil {
		return zero, fmt.Errorf("compile %s schema: %w", s.def.Name, err)
	}

	if err := sch.Validate(doc); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return zero, &domain.ValidationError{Errors: s.fieldErrors(doc, ve).Sorted()}
		}
		return zero, fmt.Errorf("validate %s: %w", s.def.Name, err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("encode normalized %s: %w", s.def.Name, err)
	}

	rec, violations, err := s.def.Convert(normalized, now)
	if err != nil {
		return zero, fmt.Errorf("convert %s: %w", s.def.Name, err)
	}
	if len(violations) > 0 {
		return zero, &domain.ValidationError{Errors: violations.Sorted()}
	}
	return rec, nil
}

func (s *SchemaService[T]) compiled(now time.Time) (*santhosh.Schema, error) {
	key := now.Year()
	if cached, ok := s.cache.Load(key); ok {
		return cached.(*santhosh.Schema), nil
	}

	schemaJSON := s.document
	if s.def.Adjust != nil {
		var doc map[string]any
		if err := json.Unmarshal(s.document, &doc); err != nil {
			return nil, err
		}
		s.def.Adjust(doc, now)
		adjusted, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		schemaJSON = adjusted
	}

	compiled, err := compileSchema(s.def.Name+".json", schemaJSON)
	if err != nil {
		return nil, err
	}
	s.cache.Store(key, compiled)
	return compiled, nil
}

// fieldErrors keys every leaf violation by the top-level field it concerns.
// Root-level required and additionalProperties failures are expanded into one
// entry per missing or unexpected field.
func (s *SchemaService[T]) fieldErrors(doc any, ve *santhosh.ValidationError) domain.FieldErrors {
	obj, _ := doc.(map[string]any)

	var out domain.FieldErrors
	for _, leaf := range collectValidationErrors(ve) {
		if field := topLevelField(leaf.InstanceLocation); field != "" {
			out = append(out, domain.FieldError{Field: field, Message: leaf.Message})
			continue
		}

		switch keyword(leaf.KeywordLocation) {
		case "required":
			for _, name := range s.required {
				if _, ok := obj[name]; !ok {
					out = append(out, domain.FieldError{Field: name, Message: "is required"})
				}
			}
		case "additionalProperties":
			unknown := make([]string, 0)
			for name := range obj {
				if !s.properties[name] {
					unknown = append(unknown, name)
				}
			}
			sort.Strings(unknown)
			for _, name := range unknown {
				out = append(out, domain.FieldError{Field: name, Message: "is not allowed"})
			}
		case "type":
			out = append(out, domain.FieldError{Field: "body", Message: "must be a JSON object"})
		default:
			out = append(out, domain.FieldError{Field: "body", Message: leaf.Message})
		}
	}
	return out
}

// compileSchema builds a *santhosh.Schema from raw JSON.
func compileSchema(name string, schemaJSON []byte) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

func collectValidationErrors(ve *santhosh.ValidationError) []*santhosh.ValidationError {
	var leaves []*santhosh.ValidationError
	for _, cause := range ve.Causes {
		leaves = append(leaves, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		leaves = append(leaves, ve)
	}
	return leaves
}

// topLevelField returns the first reference token of a JSON pointer.
func topLevelField(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	first, _, _ := strings.Cut(pointer, "/")
	first = strings.ReplaceAll(first, "~1", "/")
	return strings.ReplaceAll(first, "~0", "~")
}

func keyword(location string) string {
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}
	return location
}

func decodeDocument(payload []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	if err := ensureEOF(decoder); err != nil {
		return nil, err
	}
	return doc, nil
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}

func trimStrings(v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for i := range t {
			t[i] = trimStrings(t[i])
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = trimStrings(val)
		}
		return t
	default:
		return v
	}
}

func schemaProperty(doc map[string]any, name string) map[string]any {
	props, _ := doc["properties"].(map[string]any)
	prop, _ := props[name].(map[string]any)
	return prop
}
