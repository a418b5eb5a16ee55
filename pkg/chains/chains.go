// Package chains lists the EVM chains the router is configured for.
package chains

import "fmt"

const (
	Mainnet uint64 = 1
	BSC     uint64 = 56
	Polygon uint64 = 137
	Base    uint64 = 8453
	// Local is used for in-memory deployments and tests.
	Local uint64 = 31337
)

var names = map[uint64]string{
	Mainnet: "mainnet",
	BSC:     "bsc",
	Polygon: "polygon",
	Base:    "base",
	Local:   "local",
}

// Name returns the short name of a supported chain.
func Name(id uint64) (string, error) {
	n, ok := names[id]
	if !ok {
		return "", fmt.Errorf("unsupported chain id %d", id)
	}
	return n, nil
}

// IsSupported reports whether id is a known chain.
func IsSupported(id uint64) bool {
	_, ok := names[id]
	return ok
}
