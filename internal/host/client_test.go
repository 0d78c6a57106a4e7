package host

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		SessionToken: token,
		CallTimeout:  2 * time.Second,
	}, nil)
	return c, srv
}

// unsignedToken builds a JWT-shaped token with the given expiry, unsigned.
func unsignedToken(exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":"u1","exp":%d}`, exp.Unix())))
	return header + "." + payload + "."
}

func TestIsEmbedded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/host/v1/embedded", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"embedded": true})
	})
	c, _ := newTestClient(t, mux, "")

	embedded, err := c.IsEmbedded(context.Background())
	if err != nil {
		t.Fatalf("IsEmbedded() error: %v", err)
	}
	if !embedded {
		t.Error("IsEmbedded() = false, want true")
	}
}

func TestIsEmbedded_NoBridgeConfigured(t *testing.T) {
	c := NewClient(ClientConfig{}, nil)
	embedded, err := c.IsEmbedded(context.Background())
	if err != nil || embedded {
		t.Errorf("IsEmbedded() = (%v, %v), want (false, nil)", embedded, err)
	}
}

func TestGetContext_NullUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/host/v1/context", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user": null}`))
	})
	c, _ := newTestClient(t, mux, "")

	uc, err := c.GetContext(context.Background())
	if err != nil {
		t.Fatalf("GetContext() error: %v", err)
	}
	if uc.User != nil {
		t.Errorf("user = %+v, want nil", uc.User)
	}
}

func TestGetContext_User(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/host/v1/context", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user": {"id": 42, "username": "alice", "location": {"place_id": "p9"}}}`))
	})
	c, _ := newTestClient(t, mux, "")

	uc, err := c.GetContext(context.Background())
	if err != nil {
		t.Fatalf("GetContext() error: %v", err)
	}
	if uc.User == nil || uc.User.ID != 42 || uc.User.Username != "alice" {
		t.Fatalf("user = %+v", uc.User)
	}
	if uc.User.Location == nil || uc.User.Location.PlaceID != "p9" {
		t.Errorf("location = %+v", uc.User.Location)
	}
}

func TestAuthenticatedFetch_AttachesBearerToken(t *testing.T) {
	token := unsignedToken(time.Now().Add(time.Hour))
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/profile/me", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok": true}`))
	})
	c, _ := newTestClient(t, mux, token)

	body, err := c.AuthenticatedFetch(context.Background(), "/api/profile/me")
	if err != nil {
		t.Fatalf("AuthenticatedFetch() error: %v", err)
	}
	if gotAuth != "Bearer "+token {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if string(body) != `{"ok": true}` {
		t.Errorf("body = %s", body)
	}
}

func TestAuthenticatedFetch_ExpiredToken(t *testing.T) {
	token := unsignedToken(time.Now().Add(-time.Hour))
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/profile/me", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	c, _ := newTestClient(t, mux, token)

	_, err := c.AuthenticatedFetch(context.Background(), "/api/profile/me")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}
	if called {
		t.Error("expired session must fail before the round trip")
	}
}

func TestRequest_Accounts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/host/v1/wallet", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "eth_requestAccounts" {
			t.Errorf("method = %q", req.Method)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":["0xABCDEF0123456789ABCDEF0123456789ABCDEF01"]}`))
	})
	c, _ := newTestClient(t, mux, "")

	raw, err := c.Request(context.Background(), "eth_requestAccounts")
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("accounts = %v", accounts)
	}
}

func TestRequest_DeclinedSurfacesRPCError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/host/v1/wallet", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":4001,"message":"User rejected the request."}}`))
	})
	c, _ := newTestClient(t, mux, "")

	_, err := c.Request(context.Background(), "eth_requestAccounts")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if !rpcErr.Declined() {
		t.Errorf("code %d should classify as declined", rpcErr.Code)
	}
}

func TestReady_SwallowsFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/host/v1/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c, _ := newTestClient(t, mux, "")

	// Must not panic or block; failures are logged only.
	c.Ready(context.Background())
}

func TestRPCError_Declined(t *testing.T) {
	for _, code := range []int{4001, 4100, 4900} {
		if !(&RPCError{Code: code}).Declined() {
			t.Errorf("code %d should be declined", code)
		}
	}
	if (&RPCError{Code: -32000}).Declined() {
		t.Error("server errors are not declines")
	}
}
