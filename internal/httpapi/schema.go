// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/holomush/authsvc/internal/auth"
)

// Request bodies. Schemas check shape and size; the auth package owns the
// semantic rules (email syntax, password length).
type registerRequest struct {
	Email    string `json:"email" jsonschema:"maxLength=254"`
	Password string `json:"password" jsonschema:"maxLength=256"`
	FullName string `json:"full_name" jsonschema:"maxLength=400"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" jsonschema:"minLength=1,maxLength=4096"`
}

type providerTokenRequest struct {
	Token string `json:"token" jsonschema:"minLength=1,maxLength=8192"`
}

type resetRequest struct {
	Email string `json:"email" jsonschema:"maxLength=254"`
}

type resetConfirmRequest struct {
	Token       string `json:"token" jsonschema:"maxLength=256"`
	NewPassword string `json:"new_password" jsonschema:"maxLength=256"`
}

// requestTypes names every validated request body.
var requestTypes = []struct {
	name string
	req  any
}{
	{"register", &registerRequest{}},
	{"refresh", &refreshRequest{}},
	{"provider-token", &providerTokenRequest{}},
	{"password-reset-request", &resetRequest{}},
	{"password-reset-confirm", &resetConfirmRequest{}},
}

func reflectSchema(req any) ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true, AllowAdditionalProperties: true}
	raw, err := json.MarshalIndent(r.Reflect(req), "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_INVALID").With("type", reflect.TypeOf(req).String()).Wrap(err)
	}
	return raw, nil
}

// Schemas returns the JSON Schema of each request body keyed by request name.
func Schemas() (map[string][]byte, error) {
	out := make(map[string][]byte, len(requestTypes))
	for _, rt := range requestTypes {
		raw, err := reflectSchema(rt.req)
		if err != nil {
			return nil, err
		}
		out[rt.name] = raw
	}
	return out, nil
}

// validator holds one compiled schema per request type.
type validator struct {
	schemas map[reflect.Type]*jschema.Schema
}

func newValidator() (*validator, error) {
	v := &validator{schemas: map[reflect.Type]*jschema.Schema{}}
	for _, rt := range requestTypes {
		if err := v.register(rt.name, rt.req); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *validator) register(name string, req any) error {
	t := reflect.TypeOf(req)
	raw, err := reflectSchema(req)
	if err != nil {
		return err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("SCHEMA_INVALID").With("type", t.String()).Wrap(err)
	}

	id := "mem://" + name + ".json"
	c := jschema.NewCompiler()
	if err := c.AddResource(id, doc); err != nil {
		return oops.Code("SCHEMA_INVALID").With("type", t.String()).Wrap(err)
	}
	sch, err := c.Compile(id)
	if err != nil {
		return oops.Code("SCHEMA_INVALID").With("type", t.String()).Wrap(err)
	}
	v.schemas[t] = sch
	return nil
}

// decodeBody reads r's JSON body into dst after validating it against
// dst's schema.
func (v *validator) decodeBody(r *http.Request, dst any) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return auth.ValidationError("body", "request body must be at most %d bytes", tooBig.Limit)
		}
		return oops.With("operation", "read body").Wrap(err)
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return auth.ValidationError("body", "request body must be a JSON object")
	}
	sch, ok := v.schemas[reflect.TypeOf(dst)]
	if !ok {
		return oops.With("type", reflect.TypeOf(dst).String()).Errorf("no schema registered")
	}
	if err := sch.Validate(doc); err != nil {
		return auth.ValidationError("body", "%s", schemaMessage(err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return auth.ValidationError("body", "request body does not match the expected shape")
	}
	return nil
}

// schemaMessage flattens a validation error's leaf lines into one line.
func schemaMessage(err error) string {
	var parts []string
	for line := range strings.SplitSeq(err.Error(), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			parts = append(parts, rest)
		}
	}
	if len(parts) == 0 {
		return "request body is invalid"
	}
	return strings.Join(parts, "; ")
}
