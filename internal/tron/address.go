package tron

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// addressPrefix is the TRON mainnet address version byte ('T' in base58).
const addressPrefix = 0x41

// HexToBase58 converts a hex-encoded TRON address (0x41-prefixed, 21 bytes)
// to its base58check form: payload followed by the first four bytes of a
// double-SHA256 checksum.
func HexToBase58(hexAddr string) (string, error) {
	hexAddr = strings.TrimPrefix(hexAddr, "0x")

	raw, err := hex.DecodeString(hexAddr)
	if err != nil {
		return "", fmt.Errorf("invalid hex address %q: %w", hexAddr, err)
	}
	if len(raw) != 21 || raw[0] != addressPrefix {
		return "", fmt.Errorf("invalid tron address payload %q", hexAddr)
	}

	first := sha256.Sum256(raw)
	second := sha256.Sum256(first[:])

	payload := make([]byte, 0, len(raw)+4)
	payload = append(payload, raw...)
	payload = append(payload, second[:4]...)
	return base58.Encode(payload), nil
}

// Base58ToHex is the inverse conversion, verifying the checksum.
func Base58ToHex(addr string) (string, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("invalid base58 address %q: %w", addr, err)
	}
	if len(raw) != 25 || raw[0] != addressPrefix {
		return "", fmt.Errorf("invalid tron address payload %q", addr)
	}

	payload, checksum := raw[:21], raw[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != second[i] {
			return "", fmt.Errorf("address checksum mismatch for %q", addr)
		}
	}
	return hex.EncodeToString(payload), nil
}

// normalizeAddress converts hex-form addresses to base58 and passes base58
// input through untouched. TronGrid reports hex, TronScan reports base58.
func normalizeAddress(addr string) string {
	if addr == "" {
		return ""
	}
	if strings.HasPrefix(addr, "T") && len(addr) == 34 {
		return addr
	}
	converted, err := HexToBase58(addr)
	if err != nil {
		return addr
	}
	return converted
}
