package validator

// =============================================================================
// VALIDATOR PHILOSOPHY: CRASH EARLY, CRASH LOUD
// =============================================================================
//
// The CUE validator is the contract guard between the Go front end and the
// Rego lint rules, and between veridec and whatever reads `--json`.
//
// Without validation, if a fact column is renamed or a row comes out with
// a zero line number, the rules silently receive `undefined`, nothing
// fires, and the build looks clean.
//
// With validation the build stops with a message naming the offending
// field. Fix the builder or the schema; never suppress the error.
// =============================================================================

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed facts_schema.cue output_schema.cue
var schemaFS embed.FS

// schema is one compiled .cue file plus the definition data is checked against.
// A cue.Context is not safe for concurrent use, so every evaluation holds mu.
type schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
	def  string
	name string // used in error messages
}

func loadSchema(file, def, name string) (*schema, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s schema: %w", name, err)
	}

	root := ctx.CompileBytes(schemaBytes, cue.Filename(file))
	if root.Err() != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", name, root.Err())
	}

	if d := root.LookupPath(cue.ParsePath(def)); d.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", def, d.Err())
	}

	return &schema{ctx: ctx, root: root, def: def, name: name}, nil
}

func (s *schema) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := s.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling %s as CUE: %w", s.name, dataValue.Err())
	}
	return s.root.LookupPath(cue.ParsePath(s.def)).Unify(dataValue), nil
}

func (s *schema) validateJSON(jsonBytes []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unified, err := s.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", s.name, err)
	}
	return nil
}

func (s *schema) validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s to JSON: %w", s.name, err)
	}
	return s.validateJSON(jsonBytes)
}

// errorList returns every individual validation error, one per string.
func (s *schema) errorList(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unified, err := s.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}

	err = unified.Validate()
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// FactsValidator validates relational fact tables against the facts schema.
type FactsValidator struct {
	s *schema
}

// NewFactsValidator creates a validator for relational fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	s, err := loadSchema("facts_schema.cue", "#FactTables", "facts")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{s: s}, nil
}

// Validate checks that the fact tables conform to the facts schema.
func (v *FactsValidator) Validate(data interface{}) error {
	return v.s.validate(data)
}

// ValidateJSON validates already-encoded fact tables.
func (v *FactsValidator) ValidateJSON(jsonBytes []byte) error {
	return v.s.validateJSON(jsonBytes)
}

// ValidationErrors returns detailed information about all validation errors
func (v *FactsValidator) ValidationErrors(data interface{}) []string {
	return v.s.errorList(data)
}

// OutputValidator validates the JSON build report against the output schema
type OutputValidator struct {
	s *schema
}

// NewOutputValidator creates a validator for build reports
func NewOutputValidator() (*OutputValidator, error) {
	s, err := loadSchema("output_schema.cue", "#BuildOutput", "output")
	if err != nil {
		return nil, err
	}
	return &OutputValidator{s: s}, nil
}

// Validate checks that the output data conforms to the output schema
func (v *OutputValidator) Validate(data interface{}) error {
	return v.s.validate(data)
}

// ValidationErrors returns detailed information about all validation errors
func (v *OutputValidator) ValidationErrors(data interface{}) []string {
	return v.s.errorList(data)
}
