package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	TypeHello:     "hello.schema.json",
	TypeCmd:       "cmd.schema.json",
	TypeSubscribe: "subscribe.schema.json",
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		out := map[string]*jsonschema.Schema{}
		for typ, name := range schemaFiles {
			raw, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemasErr = err
				return
			}
			url := "mem://schemas/" + name
			if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
				schemasErr = fmt.Errorf("schema %s: %w", name, err)
				return
			}
			s, err := c.Compile(url)
			if err != nil {
				schemasErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			out[typ] = s
		}
		schemas = out
	})
	return schemas, schemasErr
}

// Validate checks an inbound message of the given type against its schema.
// Types without a schema are rejected.
func Validate(msgType string, raw []byte) error {
	all, err := compileSchemas()
	if err != nil {
		return err
	}
	s, ok := all[msgType]
	if !ok {
		return fmt.Errorf("no schema for message type %q", msgType)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
