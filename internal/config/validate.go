package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// Validation error codes (E200-E209)
const (
	ErrRead   = "E200" // config file unreadable
	ErrSyntax = "E201" // YAML syntax error
	ErrSchema = "E202" // value violates #Config
	ErrDecode = "E203" // strict decode failed
)

// ValidationError describes one problem in a configuration file.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] %s:%d:%d: %s: %s", e.Code, e.File, e.Line, e.Column, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

//go:embed config.cue
var schemaCUE []byte

var (
	cueCtx      *cue.Context
	configDef   cue.Value
	compileOnce sync.Once
	compileErr  error
)

func compileSchema() error {
	compileOnce.Do(func() {
		cueCtx = cuecontext.New()
		v := cueCtx.CompileBytes(schemaCUE, cue.Filename("config.cue"))
		if err := v.Err(); err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
			return
		}
		configDef = v.LookupPath(cue.ParsePath("#Config"))
		if !configDef.Exists() {
			compileErr = fmt.Errorf("config schema: #Config not defined")
		}
	})
	return compileErr
}

// Validate checks a configuration document against #Config and returns
// every violation found. An empty result means the document is valid.
func Validate(data []byte, filename string) []ValidationError {
	if err := compileSchema(); err != nil {
		return []ValidationError{{File: filename, Field: "schema", Message: err.Error(), Code: ErrSchema}}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return toValidationErrors(filename, ErrSyntax, err)
	}

	doc := cueCtx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return toValidationErrors(filename, ErrSyntax, err)
	}

	unified := configDef.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toValidationErrors(filename, ErrSchema, err)
	}
	return nil
}

func toValidationErrors(filename, code string, err error) []ValidationError {
	cueErrs := errors.Errors(err)
	if len(cueErrs) == 0 {
		return []ValidationError{{File: filename, Field: "config", Message: err.Error(), Code: code}}
	}

	out := make([]ValidationError, 0, len(cueErrs))
	for _, e := range cueErrs {
		ve := ValidationError{
			File:    filename,
			Field:   fieldPath(e.Path()),
			Message: message(e),
			Code:    code,
		}
		if positions := errors.Positions(e); len(positions) > 0 {
			for _, pos := range positions {
				if pos.Filename() == filename {
					ve.Line = pos.Line()
					ve.Column = pos.Column()
					break
				}
			}
		}
		out = append(out, ve)
	}
	return out
}

// fieldPath joins a CUE error path relative to the document root.
func fieldPath(path []string) string {
	if len(path) > 0 && path[0] == "#Config" {
		path = path[1:]
	}
	if len(path) == 0 {
		return "config"
	}
	return strings.Join(path, ".")
}

func message(e errors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}
