package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// requestSchemas holds the compiled request-body schemas. They are fixed per
// endpoint and compiled once at handler construction.
type requestSchemas struct {
	register        *santhosh.Schema
	login           *santhosh.Schema
	updateMe        *santhosh.Schema
	adminUpdateUser *santhosh.Schema
}

func compileRequestSchemas() (*requestSchemas, error) {
	compile := func(name string) (*santhosh.Schema, error) {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		compiler := santhosh.NewCompiler()
		compiler.Draft = santhosh.Draft7
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		sch, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		return sch, nil
	}

	var s requestSchemas
	var err error
	if s.register, err = compile("register.json"); err != nil {
		return nil, err
	}
	if s.login, err = compile("login.json"); err != nil {
		return nil, err
	}
	if s.updateMe, err = compile("update_me.json"); err != nil {
		return nil, err
	}
	if s.adminUpdateUser, err = compile("admin_update_user.json"); err != nil {
		return nil, err
	}
	return &s, nil
}

// validateBody checks raw JSON against a pre-compiled schema and returns the
// leaf validation messages.
func validateBody(sch *santhosh.Schema, data []byte) []string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return []string{"invalid json body"}
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return collectValidationErrors(ve)
		}
		return []string{err.Error()}
	}
	return nil
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, ve.Error())
	}
	return msgs
}
