package celldevs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devs-sim/devs-sim/sim"
)

type testVicinity struct {
	Weight float64 `json:"weight"`
}

func TestMergePatch(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		patch string
		want  string
	}{
		{"override wins", `{"a":1,"b":2}`, `{"b":3}`, `{"a":1,"b":3}`},
		{"recursive merge", `{"n":{"x":1,"y":2}}`, `{"n":{"y":5,"z":6}}`, `{"n":{"x":1,"y":5,"z":6}}`},
		{"null deletes", `{"a":1,"b":2}`, `{"a":null}`, `{"b":2}`},
		{"arrays replaced", `{"l":[1,2,3]}`, `{"l":[4]}`, `{"l":[4]}`},
		{"empty patch", `{"a":{"b":1}}`, `{}`, `{"a":{"b":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergePatch([]byte(tt.base), []byte(tt.patch))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestMergePatch_Malformed(t *testing.T) {
	_, err := MergePatch([]byte(`{"a":1}`), []byte(`{"a":`))
	assert.ErrorIs(t, err, sim.ErrConfig)
}

func TestParseScenario(t *testing.T) {
	t.Run("default and named entries", func(t *testing.T) {
		s, err := ParseScenario([]byte(`{"scenario":{"shape":[2,2]},"cells":{"default":{"state":1},"B":{},"A":{"state":2}}}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"state":1}`, string(s.Default))
		assert.Equal(t, []string{"A", "B"}, s.EntryIDs())
	})

	t.Run("missing default is empty", func(t *testing.T) {
		s, err := ParseScenario([]byte(`{"cells":{"A":{"state":2}}}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(s.Default))
		merged, err := s.Merged("A")
		require.NoError(t, err)
		assert.JSONEq(t, `{"state":2}`, string(merged))
	})

	for name, doc := range map[string]string{
		"not json":           `{"cells":`,
		"missing cells":      `{"default":{}}`,
		"cells not object":   `{"cells":[1,2]}`,
		"entry not object":   `{"cells":{"A":3}}`,
		"top level an array": `[{"cells":{}}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario([]byte(doc))
			assert.ErrorIs(t, err, sim.ErrConfig)
		})
	}
}

func TestLoadScenario_YAMLMatchesJSON(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "scenario.json")
	yamlPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"cells":{"default":{"delay":"transport","neighborhood":{"A":{"weight":0.5}}},"A":{"state":3}}}`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(`cells:
  default:
    delay: transport
    neighborhood:
      A:
        weight: 0.5
  A:
    state: 3
`), 0o644))

	fromJSON, err := LoadScenario(jsonPath)
	require.NoError(t, err)
	fromYAML, err := LoadScenario(yamlPath)
	require.NoError(t, err)

	assert.JSONEq(t, string(fromJSON.Default), string(fromYAML.Default))
	assert.JSONEq(t, string(fromJSON.Entries["A"]), string(fromYAML.Entries["A"]))
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseCellConfig(t *testing.T) {
	t.Run("fields and defaults", func(t *testing.T) {
		cfg, err := ParseCellConfig[int, testVicinity]("A",
			[]byte(`{"model":"max","state":4,"config":{"k":1},"neighborhood":{"B":{"weight":2},"A":null},"eoc":[{"from":"neighborhoodOutput","to":"out"}]}`), false)
		require.NoError(t, err)

		assert.Equal(t, DelayInertial, cfg.Delay)
		assert.Equal(t, "max", cfg.Model)
		assert.Equal(t, []string{"A"}, cfg.CellMap)
		assert.Equal(t, 4, cfg.State)
		assert.Equal(t, map[string]testVicinity{"A": {}, "B": {Weight: 2}}, cfg.Neighborhood)
		assert.Equal(t, []string{"A", "B"}, cfg.Neighbors())
		assert.Equal(t, []PortPair{{From: "neighborhoodOutput", To: "out"}}, cfg.EOC)

		var params struct {
			K int `json:"k"`
		}
		require.NoError(t, cfg.DecodeParams(&params))
		assert.Equal(t, 1, params.K)
	})

	t.Run("own cell map", func(t *testing.T) {
		cfg, err := ParseCellConfig[int, testVicinity]("row", []byte(`{"cell_map":["x","y"]}`), true)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, cfg.CellMap)
	})

	t.Run("inherited cell map is ignored", func(t *testing.T) {
		cfg, err := ParseCellConfig[int, testVicinity]("row", []byte(`{"cell_map":["x","y"]}`), false)
		require.NoError(t, err)
		assert.Equal(t, []string{"row"}, cfg.CellMap)
	})

	rejected := map[string]string{
		"unknown field":          `{"colour":"red"}`,
		"unknown delay":          `{"delay":"hyperbolic"}`,
		"mistyped state":         `{"state":"four"}`,
		"unknown vicinity field": `{"neighborhood":{"B":{"distance":1}}}`,
		"half external coupling": `{"eic":[{"from":"in"}]}`,
	}
	for name, doc := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCellConfig[int, testVicinity]("A", []byte(doc), false)
			assert.ErrorIs(t, err, sim.ErrConfig)
		})
	}

	t.Run("unknown parameter", func(t *testing.T) {
		cfg, err := ParseCellConfig[int, testVicinity]("A", []byte(`{"config":{"k":1,"j":2}}`), false)
		require.NoError(t, err)
		var params struct {
			K int `json:"k"`
		}
		assert.ErrorIs(t, cfg.DecodeParams(&params), sim.ErrConfig)
	})
}

func TestValidDelayTypes(t *testing.T) {
	assert.True(t, IsValidDelayType("inertial"))
	assert.True(t, IsValidDelayType("transport"))
	assert.False(t, IsValidDelayType(""))
	assert.Equal(t, []string{"inertial", "transport"}, ValidDelayTypeNames())
}

func TestParseCellConfig_EmptyCellMapMapsNoCell(t *testing.T) {
	cfg, err := ParseCellConfig[int, testVicinity]("default", []byte(`{"cell_map":[]}`), true)
	require.NoError(t, err)
	assert.Empty(t, cfg.CellMap)
}
