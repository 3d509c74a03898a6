package scope

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrUnknownLayer   = errors.New("unknown layer")
)

type Network string

const (
	NetworkMainnet  Network = "mainnet"
	NetworkTestnet  Network = "testnet"
	NetworkLocalnet Network = "localnet"
)

type Layer string

const (
	LayerConsensus   Layer = "consensus"
	LayerEmerald     Layer = "emerald"
	LayerSapphire    Layer = "sapphire"
	LayerCipher      Layer = "cipher"
	LayerPontusxDev  Layer = "pontusxdev"
	LayerPontusxTest Layer = "pontusxtest"
)

// Networks lists every known network in display order
var Networks = []Network{NetworkMainnet, NetworkTestnet, NetworkLocalnet}

// Layers lists every known layer in display order
var Layers = []Layer{
	LayerConsensus,
	LayerEmerald,
	LayerSapphire,
	LayerCipher,
	LayerPontusxDev,
	LayerPontusxTest,
}

// Scope identifies the chain or sub-chain a query targets
type Scope struct {
	Network Network `json:"network" yaml:"network"`
	Layer   Layer   `json:"layer" yaml:"layer"`
}

func New(network Network, layer Layer) Scope {
	return Scope{Network: network, Layer: layer}
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s", s.Network, s.Layer)
}

func (n Network) Valid() bool {
	for _, known := range Networks {
		if n == known {
			return true
		}
	}
	return false
}

func (l Layer) Valid() bool {
	for _, known := range Layers {
		if l == known {
			return true
		}
	}
	return false
}

func ParseNetwork(value string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(value)))
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, value)
	}
	return n, nil
}

func ParseLayer(value string) (Layer, error) {
	l := Layer(strings.ToLower(strings.TrimSpace(value)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLayer, value)
	}
	return l, nil
}

// ParseScope parses a network and a layer name into a Scope
func ParseScope(network, layer string) (Scope, error) {
	n, err := ParseNetwork(network)
	if err != nil {
		return Scope{}, err
	}
	l, err := ParseLayer(layer)
	if err != nil {
		return Scope{}, err
	}
	return New(n, l), nil
}
