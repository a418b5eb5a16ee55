package poolregistry

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	errPoolKeyTooLong    = errors.New("pool key too long")
	errPoolKeyNotAddress = errors.New("pool key is not an ABI-encoded Ethereum address")
)

// PoolKey is a fixed-size 32-byte identifier for a pool on any venue.
//
// Pair-style venues identify a pool by its 20-byte contract address, vault
// style venues (Balancer, Uniswap v4) by a bytes32 pool id. Both are stored
// in the same comparable type so routes can carry either:
//   - address keys use the ABI word layout: [0..11] zero, [12..31] address
//   - bytes32 keys are stored verbatim
type PoolKey [32]byte

// IsZero reports whether the key is unset.
func (p PoolKey) IsZero() bool {
	return p == PoolKey{}
}

// String returns the 0x-prefixed hex form of the key.
func (p PoolKey) String() string {
	return "0x" + hex.EncodeToString(p[:])
}

// MarshalJSON serializes the key as a hex string.
func (p PoolKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a hex string into the key with HexToPoolKey, so a
// 20-byte address decodes to the same key as AddressToPoolKey.
func (p *PoolKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}

// MarshalText lets text encoders such as YAML write the key as hex.
func (p PoolKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses hex with HexToPoolKey, so configuration files may
// give pool addresses as plain 20-byte hex.
func (p *PoolKey) UnmarshalText(text []byte) error {
	key, err := HexToPoolKey(string(text))
	if err != nil {
		return err
	}
	*p = key
	return nil
}

// HexToPoolKey parses user supplied hex. A 20-byte value is treated as a
// pool address and right-aligned; anything up to 32 bytes is right-aligned
// as well, matching how a bytes32 id is written on chain.
func HexToPoolKey(s string) (PoolKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return PoolKey{}, err
	}
	if len(b) > 32 {
		return PoolKey{}, errPoolKeyTooLong
	}

	var key PoolKey
	copy(key[32-len(b):], b)
	return key, nil
}

// AddressToPoolKey converts a pool contract address into a PoolKey using
// the ABI word layout.
func AddressToPoolKey(addr common.Address) PoolKey {
	var key PoolKey
	copy(key[12:], addr[:])
	return key
}

// ToAddress interprets the key as a pool contract address. It only checks
// the ABI shape (12 leading zero bytes), so a bytes32 id that happens to
// start with 12 zero bytes is accepted as well.
func (p PoolKey) ToAddress() (common.Address, error) {
	for _, b := range p[:12] {
		if b != 0 {
			return common.Address{}, errPoolKeyNotAddress
		}
	}
	return common.Address(p[12:32]), nil
}
