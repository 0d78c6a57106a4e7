// Package wallet unifies the host-injected wallet provider and the generic
// connector registry behind one bridge, and owns the process-scoped wallet
// connection signal.
package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// addressLen is the rendered length of a 20-byte chain address: "0x" + 40 hex.
const addressLen = 42

// NormalizeAddress validates a chain address and renders it as a lowercase
// hex string with the 0x prefix.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if len(addr) != addressLen || (!strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X")) {
		return "", fmt.Errorf("malformed address: %q", addr)
	}
	lowered := strings.ToLower(addr)
	if _, err := hex.DecodeString(lowered[2:]); err != nil {
		return "", fmt.Errorf("malformed address: %q", addr)
	}
	return lowered, nil
}

// IsValidAddress reports whether addr is a well-formed lowercase 0x address.
func IsValidAddress(addr string) bool {
	normalized, err := NormalizeAddress(addr)
	return err == nil && normalized == addr
}
