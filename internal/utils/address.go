package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var evmAddressPattern = regexp.MustCompile("^[0-9a-fA-F]{40}$")

// IsEvmAddress checks whether the string is a 20-byte EVM address,
// with or without the 0x prefix
func IsEvmAddress(address string) bool {
	if address == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(address), "0x") {
		return len(address) == 42 && evmAddressPattern.MatchString(address[2:])
	}
	return evmAddressPattern.MatchString(address)
}

// NormalizeEvmAddress normalizes an EVM address to its canonical stored
// form: 0x prefix plus 40 lowercase hex characters. Every comparison and
// store lookup in the claim pipeline runs on this form, so the same wallet
// reported with different casing always resolves to the same records.
func NormalizeEvmAddress(address string) (string, error) {
	if !IsEvmAddress(address) {
		return "", fmt.Errorf("invalid EVM address format: %s", address)
	}
	lower := strings.ToLower(address)
	if !strings.HasPrefix(lower, "0x") {
		lower = "0x" + lower
	}
	return lower, nil
}

// MustNormalizeEvmAddress is NormalizeEvmAddress for inputs already
// validated at the boundary
func MustNormalizeEvmAddress(address string) string {
	normalized, err := NormalizeEvmAddress(address)
	if err != nil {
		return strings.ToLower(address)
	}
	return normalized
}
