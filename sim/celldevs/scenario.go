package celldevs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/devs-sim/devs-sim/sim"
)

// DefaultConfigID is the scenario entry every other entry is patched over.
const DefaultConfigID = "default"

// Scenario is a parsed scenario file: the default cell configuration and the
// named configurations, each still in its raw JSON form.
type Scenario struct {
	Default json.RawMessage
	Entries map[string]json.RawMessage
}

// LoadScenario reads a scenario file. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %v: %w", path, err, sim.ErrConfig)
		}
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes a JSON scenario document. The top level must be an
// object with a "cells" object; other top-level keys are ignored. A missing
// "default" entry is treated as an empty configuration.
func ParseScenario(data []byte) (*Scenario, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("scenario: %v: %w", err, sim.ErrConfig)
	}
	rawCells, ok := top["cells"]
	if !ok {
		return nil, fmt.Errorf("scenario: missing \"cells\" object: %w", sim.ErrConfig)
	}
	var cells map[string]json.RawMessage
	if err := json.Unmarshal(rawCells, &cells); err != nil || cells == nil {
		return nil, fmt.Errorf("scenario: \"cells\" must be an object: %w", sim.ErrConfig)
	}

	s := &Scenario{Entries: make(map[string]json.RawMessage, len(cells))}
	for id, raw := range cells {
		if !isObject(raw) {
			return nil, fmt.Errorf("scenario: cell config %q must be an object: %w", id, sim.ErrConfig)
		}
		if id == DefaultConfigID {
			s.Default = raw
			continue
		}
		s.Entries[id] = raw
	}
	if s.Default == nil {
		logrus.Warnf("scenario has no %q cell configuration; using an empty one", DefaultConfigID)
		s.Default = json.RawMessage("{}")
	}
	return s, nil
}

// EntryIDs returns the ids of the named configurations, sorted.
func (s *Scenario) EntryIDs() []string {
	ids := make([]string, 0, len(s.Entries))
	for id := range s.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merged returns the configuration of entry id patched over the default.
// The default entry itself is returned unchanged.
func (s *Scenario) Merged(id string) ([]byte, error) {
	if id == DefaultConfigID {
		return s.Default, nil
	}
	patch, ok := s.Entries[id]
	if !ok {
		return nil, fmt.Errorf("scenario: cell config %q: %w", id, sim.ErrUnknownComponent)
	}
	merged, err := MergePatch(s.Default, patch)
	if err != nil {
		return nil, fmt.Errorf("cell config %q: %w", id, err)
	}
	return merged, nil
}

// declaresCellMap reports whether entry id sets cell_map itself, rather than
// inheriting it from the default.
func (s *Scenario) declaresCellMap(id string) bool {
	raw := s.Default
	if id != DefaultConfigID {
		raw = s.Entries[id]
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	v, ok := fields["cell_map"]
	return ok && !isNull(v)
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// yamlToJSON converts a YAML document into the equivalent JSON document.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
