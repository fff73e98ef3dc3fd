package celldevs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/devs-sim/devs-sim/sim"
)

// DelayType selects how a cell buffers its outgoing state changes.
type DelayType string

const (
	// DelayInertial keeps only the latest pending state: a new state change
	// preempts the one still waiting to be published.
	DelayInertial DelayType = "inertial"
	// DelayTransport publishes every state change at its own scheduled time.
	DelayTransport DelayType = "transport"
)

// validDelayTypes is the registry of accepted "delay" values.
var validDelayTypes = map[DelayType]bool{
	DelayInertial:  true,
	DelayTransport: true,
}

// IsValidDelayType returns true if name is a recognized delay buffer.
func IsValidDelayType(name string) bool {
	return validDelayTypes[DelayType(name)]
}

// ValidDelayTypeNames returns the accepted delay names, sorted.
func ValidDelayTypeNames() []string {
	names := make([]string, 0, len(validDelayTypes))
	for d := range validDelayTypes {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return names
}

// PortPair is one external coupling declared by a cell configuration.
// For an EIC, From is a port of the Cell-DEVS coupled model and To a port of
// the cell; for an EOC, From is a port of the cell and To a port of the coupled model.
type PortPair struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// rawCellConfig is the wire form of one cell configuration, after merging.
type rawCellConfig struct {
	Delay        string                     `json:"delay"`
	Model        string                     `json:"model"`
	CellMap      []string                   `json:"cell_map"`
	State        json.RawMessage            `json:"state"`
	Config       json.RawMessage            `json:"config"`
	Neighborhood map[string]json.RawMessage `json:"neighborhood"`
	EIC          []PortPair                 `json:"eic"`
	EOC          []PortPair                 `json:"eoc"`
}

// CellConfig is the decoded configuration shared by every cell it maps to.
// S is the cell state type and V the vicinity type of the neighborhood.
type CellConfig[S any, V any] struct {
	ID           string          // scenario entry the configuration came from
	Delay        DelayType       // output delay buffer
	Model        string          // cell model name, interpreted by the model factory
	CellMap      []string        // ids of the cells using this configuration
	State        S               // initial state of every mapped cell
	Config       json.RawMessage // model parameters; see DecodeParams
	Neighborhood map[string]V    // neighbor cell id → vicinity
	EIC          []PortPair
	EOC          []PortPair
}

// ParseCellConfig strictly decodes the merged configuration of entry id.
// Unknown fields are rejected, in the configuration itself as well as in its
// state and vicinities. When the entry declares no cell_map of its own, the
// configuration maps to the single cell named id; an explicit empty cell_map
// maps it to no cell at all.
func ParseCellConfig[S any, V any](id string, data []byte, ownCellMap bool) (*CellConfig[S, V], error) {
	var raw rawCellConfig
	if err := decodeStrict(data, &raw); err != nil {
		return nil, fmt.Errorf("cell config %q: %v: %w", id, err, sim.ErrConfig)
	}
	cfg := &CellConfig[S, V]{
		ID:           id,
		Delay:        DelayType(raw.Delay),
		Model:        raw.Model,
		CellMap:      raw.CellMap,
		Config:       raw.Config,
		Neighborhood: make(map[string]V, len(raw.Neighborhood)),
		EIC:          raw.EIC,
		EOC:          raw.EOC,
	}
	if cfg.Delay == "" {
		cfg.Delay = DelayInertial
	}
	if !ownCellMap {
		cfg.CellMap = []string{id}
	}
	if len(raw.State) > 0 && !isNull(raw.State) {
		if err := decodeStrict(raw.State, &cfg.State); err != nil {
			return nil, fmt.Errorf("cell config %q: state: %v: %w", id, err, sim.ErrConfig)
		}
	}
	for neighbor, v := range raw.Neighborhood {
		var vicinity V
		if len(v) > 0 && !isNull(v) {
			if err := decodeStrict(v, &vicinity); err != nil {
				return nil, fmt.Errorf("cell config %q: vicinity of %q: %v: %w", id, neighbor, err, sim.ErrConfig)
			}
		}
		cfg.Neighborhood[neighbor] = vicinity
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that do not depend on the cell model.
func (c *CellConfig[S, V]) Validate() error {
	if !validDelayTypes[c.Delay] {
		return fmt.Errorf("cell config %q: unknown delay %q (valid: %v): %w", c.ID, c.Delay, ValidDelayTypeNames(), sim.ErrConfig)
	}
	for _, id := range c.CellMap {
		if id == "" {
			return fmt.Errorf("cell config %q: empty id in cell_map: %w", c.ID, sim.ErrConfig)
		}
	}
	for _, p := range append(append([]PortPair{}, c.EIC...), c.EOC...) {
		if p.From == "" || p.To == "" {
			return fmt.Errorf("cell config %q: external coupling %+v needs both ends: %w", c.ID, p, sim.ErrConfig)
		}
	}
	return nil
}

// Neighbors returns the neighbor ids in ascending order.
func (c *CellConfig[S, V]) Neighbors() []string {
	ids := make([]string, 0, len(c.Neighborhood))
	for id := range c.Neighborhood {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DecodeParams strictly decodes the model parameters into v. A configuration
// without parameters leaves v untouched.
func (c *CellConfig[S, V]) DecodeParams(v any) error {
	if len(c.Config) == 0 || isNull(c.Config) {
		return nil
	}
	if err := decodeStrict(c.Config, v); err != nil {
		return fmt.Errorf("cell config %q: config: %v: %w", c.ID, err, sim.ErrConfig)
	}
	return nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
