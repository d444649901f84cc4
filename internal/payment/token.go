// Package payment implements on-chain payment verification: inline proof
// parsing, address and hash normalization, token unit conversion, and the
// polling verifier that confirms a transfer against the ledger.
package payment

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTokenDecimals matches the MOVE token: 1 token = 10^8 octas.
// Catalog prices are denominated in octas; display amounts divide by the
// decimals multiplier, so 100000 octas renders as "0.001".
const DefaultTokenDecimals = 8

var hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// NormalizeAddress strips the 0x prefix and lowercases a wallet address so
// that on-chain and client-supplied spellings compare equal.
func NormalizeAddress(addr string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
}

// NormalizeHash lowercases a transaction hash and ensures the canonical 0x
// prefix.
func NormalizeHash(hash string) string {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if !strings.HasPrefix(hash, "0x") {
		hash = "0x" + hash
	}
	return hash
}

// IsCanonicalHash reports whether hash is a 0x-prefixed 32-byte hex string
func IsCanonicalHash(hash string) bool {
	return hashPattern.MatchString(strings.ToLower(hash))
}

// FormatOctas renders an octas amount as a decimal token amount, trimming
// trailing zeros: FormatOctas(100000, 8) == "0.001".
func FormatOctas(octas int64, decimals int) string {
	if decimals <= 0 {
		decimals = DefaultTokenDecimals
	}

	multiplier := int64(1)
	for i := 0; i < decimals; i++ {
		multiplier *= 10
	}

	whole := octas / multiplier
	frac := octas % multiplier
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}

	fracStr := strings.TrimRight(fmt.Sprintf("%0*d", decimals, frac), "0")
	return fmt.Sprintf("%d.%s", whole, fracStr)
}
