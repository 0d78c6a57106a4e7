// Package host provides the client for the host platform bridge: the runtime
// embedding check, the identity context, authenticated application fetches,
// the injected wallet provider, and the readiness action.
package host

import (
	"encoding/json"
	"fmt"
)

// User is the host-supplied identity profile.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Location       *Place `json:"location,omitempty"`
	PrimaryAddress string `json:"primary_address,omitempty"`
}

// Place is a structured place reference attached to a user profile.
type Place struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description,omitempty"`
}

// UserContext is the host identity context. User is nil when the host has no
// authenticated user for the current session.
type UserContext struct {
	User *User `json:"user"`
}

// rpcRequest is the JSON-RPC shaped payload accepted by the injected wallet
// provider endpoint.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// RPCError is a provider-level JSON-RPC error. Codes follow the EIP-1193
// provider conventions (4001 user rejected, 4100 unauthorized, 4900
// disconnected).
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Declined reports whether the error represents the user or provider
// declining access rather than a transport fault.
func (e *RPCError) Declined() bool {
	switch e.Code {
	case 4001, 4100, 4900:
		return true
	}
	return false
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}
