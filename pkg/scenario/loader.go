package scenario

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml data/scenario.schema.json
var embedded embed.FS

const schemaPath = "data/scenario.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func scenarioSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := embedded.ReadFile(schemaPath)
		if err != nil {
			schemaErr = fmt.Errorf("read schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("scenario.schema.json", bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile("scenario.schema.json")
	})
	return compiledSchema, schemaErr
}

// Parse decodes a YAML scenario document, validating it against the embedded
// schema first.
func Parse(data []byte) (*Scenario, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scenario yaml: %w", err)
	}

	// Round-trip through JSON so the validator sees plain JSON values.
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize scenario document: %w", err)
	}
	var instance interface{}
	dec := json.NewDecoder(bytes.NewReader(asJSON))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return nil, fmt.Errorf("normalize scenario document: %w", err)
	}

	schema, err := scenarioSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("scenario schema: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := checkKeys(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// checkKeys rejects duplicate stage and branch keys. A default branch that
// names no branch is tolerated; matching falls back to the first branch.
func checkKeys(s *Scenario) error {
	stageKeys := make(map[string]struct{}, len(s.Stages))
	for _, st := range s.Stages {
		if _, dup := stageKeys[st.Key]; dup {
			return fmt.Errorf("scenario %s: duplicate stage key %q", s.Key, st.Key)
		}
		stageKeys[st.Key] = struct{}{}

		branchKeys := make(map[string]struct{}, len(st.Branches))
		for _, b := range st.Branches {
			if _, dup := branchKeys[b.Key]; dup {
				return fmt.Errorf("scenario %s: stage %s: duplicate branch key %q", s.Key, st.Key, b.Key)
			}
			branchKeys[b.Key] = struct{}{}
		}
	}
	return nil
}

// LoadFS parses every *.yaml file under dir in fsys.
func LoadFS(fsys fs.FS, dir string) ([]*Scenario, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var out []*Scenario
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		p := path.Join(dir, entry.Name())
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		s, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	return out, nil
}

// LoadEmbedded builds a catalog from the scenarios compiled into the binary.
func LoadEmbedded(defaultKey string) (*Catalog, error) {
	scenarios, err := LoadFS(embedded, "data")
	if err != nil {
		return nil, err
	}
	catalog := NewCatalog(defaultKey, scenarios...)
	if _, err := catalog.Default(); err != nil {
		return nil, err
	}
	return catalog, nil
}
