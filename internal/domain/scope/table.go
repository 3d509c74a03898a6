package scope

import (
	"fmt"
)

// NetworkSpec describes one network in a TableSpec
type NetworkSpec struct {
	Local  bool           `yaml:"local"`
	Layers map[Layer]bool `yaml:"layers"`
}

// TableSpec is the decodable form of a Table
type TableSpec struct {
	AlternateLayers []Layer                 `yaml:"alternate_layers"`
	Networks        map[Network]NetworkSpec `yaml:"networks"`

	// SharedSearchLayers are alternate layers whose name searches also
	// cover the primary registry
	SharedSearchLayers []Layer `yaml:"shared_search_layers"`
}

// Table is the immutable eligibility table consumed by the resolver.
// It answers which layers belong to the alternate (Pontus-X) family,
// which networks are local and which layers each network serves.
type Table struct {
	alternate map[Layer]struct{}
	shared    map[Layer]struct{}
	local     map[Network]struct{}
	enabled   map[Scope]struct{}
}

// NewTable validates spec and builds a Table that shares no state with it
func NewTable(spec TableSpec) (*Table, error) {
	t := &Table{
		alternate: make(map[Layer]struct{}, len(spec.AlternateLayers)),
		shared:    make(map[Layer]struct{}, len(spec.SharedSearchLayers)),
		local:     make(map[Network]struct{}),
		enabled:   make(map[Scope]struct{}),
	}

	for _, l := range spec.AlternateLayers {
		if !l.Valid() {
			return nil, fmt.Errorf("alternate layers: %w: %q", ErrUnknownLayer, l)
		}
		t.alternate[l] = struct{}{}
	}

	for _, l := range spec.SharedSearchLayers {
		if _, ok := t.alternate[l]; !ok {
			return nil, fmt.Errorf("shared search layers: %q is not an alternate layer", l)
		}
		t.shared[l] = struct{}{}
	}

	for n, ns := range spec.Networks {
		if !n.Valid() {
			return nil, fmt.Errorf("networks: %w: %q", ErrUnknownNetwork, n)
		}
		if ns.Local {
			t.local[n] = struct{}{}
		}
		for l, on := range ns.Layers {
			if !l.Valid() {
				return nil, fmt.Errorf("network %s: %w: %q", n, ErrUnknownLayer, l)
			}
			if on {
				t.enabled[New(n, l)] = struct{}{}
			}
		}
	}

	return t, nil
}

// DefaultTable returns the built-in Oasis network configuration
func DefaultTable() *Table {
	t, err := NewTable(DefaultTableSpec())
	if err != nil {
		panic(err)
	}
	return t
}

func DefaultTableSpec() TableSpec {
	return TableSpec{
		AlternateLayers: []Layer{LayerPontusxDev, LayerPontusxTest},
		Networks: map[Network]NetworkSpec{
			NetworkMainnet: {
				Layers: map[Layer]bool{
					LayerConsensus: true,
					LayerEmerald:   true,
					LayerSapphire:  true,
					LayerCipher:    true,
				},
			},
			NetworkTestnet: {
				Layers: map[Layer]bool{
					LayerConsensus:   true,
					LayerEmerald:     true,
					LayerSapphire:    true,
					LayerCipher:      true,
					LayerPontusxDev:  true,
					LayerPontusxTest: true,
				},
			},
			NetworkLocalnet: {
				Local: true,
				Layers: map[Layer]bool{
					LayerConsensus: true,
					LayerEmerald:   true,
					LayerSapphire:  true,
				},
			},
		},
	}
}

// IsAlternate reports whether layer belongs to the alternate-network family
func (t *Table) IsAlternate(layer Layer) bool {
	_, ok := t.alternate[layer]
	return ok
}

// SearchesPrimary reports whether name searches on layer cover the primary
// registry. That holds for every non-alternate layer and for shared layers.
func (t *Table) SearchesPrimary(layer Layer) bool {
	if !t.IsAlternate(layer) {
		return true
	}
	_, ok := t.shared[layer]
	return ok
}

// IsLocal reports whether network is a local/dev network without a metadata service
func (t *Table) IsLocal(network Network) bool {
	_, ok := t.local[network]
	return ok
}

func (t *Table) IsEnabled(s Scope) bool {
	_, ok := t.enabled[s]
	return ok
}

// Info describes how a scope is served
type Info struct {
	Scope       Scope
	IsAlternate bool
	IsLocal     bool
}

func (t *Table) Describe(s Scope) Info {
	return Info{
		Scope:       s,
		IsAlternate: t.IsAlternate(s.Layer),
		IsLocal:     t.IsLocal(s.Network),
	}
}

// Scopes returns all enabled scopes ordered by network then layer
func (t *Table) Scopes() []Scope {
	var scopes []Scope
	for _, n := range Networks {
		for _, l := range Layers {
			s := New(n, l)
			if t.IsEnabled(s) {
				scopes = append(scopes, s)
			}
		}
	}
	return scopes
}
