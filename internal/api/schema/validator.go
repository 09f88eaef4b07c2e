package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidDocument is matched by every *DocumentError.
var ErrInvalidDocument = errors.New("request body does not match schema")

// DocumentError lists the schema violations of one request body.
type DocumentError struct {
	Problems []string
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidDocument, strings.Join(e.Problems, "; "))
}

func (e *DocumentError) Unwrap() error { return ErrInvalidDocument }

// Validator checks decoded request bodies against the compiled schemas. It is
// safe for concurrent use.
type Validator struct {
	demand      *jsonschema.Schema
	transaction *jsonschema.Schema
}

// NewValidator compiles the request schemas.
func NewValidator() (*Validator, error) {
	demand, err := compile(DemandRequestURL, demandRequestSchema)
	if err != nil {
		return nil, err
	}
	transaction, err := compile(TransactionRequestURL, transactionRequestSchema)
	if err != nil {
		return nil, err
	}
	return &Validator{demand: demand, transaction: transaction}, nil
}

func compile(url, doc string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", url, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return compiled, nil
}

// Demand validates a decoded demand request body.
func (v *Validator) Demand(doc any) error {
	return check(v.demand, doc)
}

// Transaction validates a decoded transaction request body.
func (v *Validator) Transaction(doc any) error {
	return check(v.transaction, doc)
}

func check(s *jsonschema.Schema, doc any) error {
	err := s.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &DocumentError{Problems: []string{err.Error()}}
	}
	problems := leaves(ve, nil)
	sort.Strings(problems)
	return &DocumentError{Problems: problems}
}

// leaves flattens the cause tree to "location: message" lines.
func leaves(ve *jsonschema.ValidationError, out []string) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return append(out, loc+": "+ve.Message)
	}
	for _, c := range ve.Causes {
		out = leaves(c, out)
	}
	return out
}
