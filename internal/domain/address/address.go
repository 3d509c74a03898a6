// Package address converts between Ethereum-style and Oasis native addresses.
package address

import (
	"crypto/sha512"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
)

const (
	HRP = "oasis"

	// ethContext is the derivation context for secp256k1 Ethereum addresses
	ethContext = "oasis-runtime-sdk/address: secp256k1eth"
	version    = 0
	hashLen    = 20
)

// IsEthAddress reports whether addr is a 0x-prefixed 20 byte hex address
func IsEthAddress(addr string) bool {
	if !strings.HasPrefix(strings.ToLower(addr), "0x") {
		return false
	}
	return common.IsHexAddress(addr)
}

// IsOasisAddress reports whether addr decodes as an oasis1 bech32 address
func IsOasisAddress(addr string) bool {
	hrp, data, err := bech32.Decode(addr)
	if err != nil || hrp != HRP {
		return false
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	return err == nil && len(raw) == hashLen+1
}

// FromEth derives the Oasis address of an Ethereum address
func FromEth(addr string) (string, error) {
	if !IsEthAddress(addr) {
		return "", fmt.Errorf("not an ethereum address: %q", addr)
	}

	eth := common.HexToAddress(addr)

	preimage := make([]byte, 0, len(ethContext)+1+common.AddressLength)
	preimage = append(preimage, ethContext...)
	preimage = append(preimage, version)
	preimage = append(preimage, eth.Bytes()...)
	sum := sha512.Sum512_256(preimage)

	raw := make([]byte, 0, hashLen+1)
	raw = append(raw, version)
	raw = append(raw, sum[:hashLen]...)

	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	encoded, err := bech32.Encode(HRP, conv)
	if err != nil {
		return "", fmt.Errorf("bech32 encode: %w", err)
	}
	return encoded, nil
}

// Normalize returns the chain-native form of addr. Ethereum addresses are
// converted, anything else is returned unchanged.
func Normalize(addr string) string {
	if !IsEthAddress(addr) {
		return addr
	}
	native, err := FromEth(addr)
	if err != nil {
		return addr
	}
	return native
}
