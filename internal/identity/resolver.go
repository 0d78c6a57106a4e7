// Package identity resolves the host-supplied user profile, optionally
// augmented by the application's backend profile endpoint. It only runs in
// host mode; standalone sessions carry no identity.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/session_layer/internal/host"
	"github.com/R3E-Network/session_layer/internal/wallet"
	"github.com/R3E-Network/session_layer/pkg/logger"
)

// ErrIdentityUnavailable indicates the host reported no authenticated user.
// This is terminal for host-mode resolution.
var ErrIdentityUnavailable = errors.New("host identity unavailable")

// Profile is the resolved identity.
type Profile struct {
	ID          int64       `json:"id"`
	Username    string      `json:"username,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	Location    *host.Place `json:"location,omitempty"`
}

// Resolution is the outcome of a successful identity resolution. AddressHint
// is advisory only: the wallet bridge's live result is always authoritative.
type Resolution struct {
	Identity    *Profile
	AddressHint string
}

// ContextClient is the slice of the host bridge the resolver needs.
type ContextClient interface {
	GetContext(ctx context.Context) (*host.UserContext, error)
	AuthenticatedFetch(ctx context.Context, path string) ([]byte, error)
}

// Resolver resolves identity from the host context plus an opportunistic
// backend profile fetch.
type Resolver struct {
	client      ContextClient
	profilePath string
	log         *logger.Logger
}

// NewResolver creates a resolver fetching the supplementary profile from the
// given application-internal path.
func NewResolver(client ContextClient, profilePath string, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.New(logger.LoggingConfig{})
	}
	return &Resolver{client: client, profilePath: profilePath, log: log}
}

// Resolve fetches the host profile and merges in backend profile fields.
// Backend failure is non-fatal: resolution proceeds with host-supplied fields
// only. A missing host user returns ErrIdentityUnavailable; any other host
// failure is returned as-is for the caller to classify.
func (r *Resolver) Resolve(ctx context.Context) (*Resolution, error) {
	uc, err := r.client.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch host context: %w", err)
	}
	if uc == nil || uc.User == nil {
		return nil, ErrIdentityUnavailable
	}

	user := uc.User
	profile := &Profile{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Location:    user.Location,
	}

	backendAddr := r.supplement(ctx, profile)

	hint := ""
	if addr, err := wallet.NormalizeAddress(user.PrimaryAddress); err == nil {
		hint = addr
	} else if addr, err := wallet.NormalizeAddress(backendAddr); err == nil {
		hint = addr
	}

	return &Resolution{Identity: profile, AddressHint: hint}, nil
}

// supplement fills empty profile fields from the backend profile endpoint and
// returns the backend's primary address, if any.
func (r *Resolver) supplement(ctx context.Context, profile *Profile) string {
	body, err := r.client.AuthenticatedFetch(ctx, r.profilePath)
	if err != nil {
		r.log.WithError(err).Warn("backend profile fetch failed, using host fields only")
		return ""
	}
	if !gjson.ValidBytes(body) {
		r.log.Warn("backend profile response is not valid JSON")
		return ""
	}

	doc := gjson.ParseBytes(body)
	if profile.Username == "" {
		profile.Username = doc.Get("username").String()
	}
	if profile.DisplayName == "" {
		profile.DisplayName = doc.Get("display_name").String()
	}
	if profile.AvatarURL == "" {
		profile.AvatarURL = doc.Get("avatar_url").String()
	}
	if profile.Location == nil {
		if loc := doc.Get("location"); loc.IsObject() {
			profile.Location = &host.Place{
				PlaceID:     loc.Get("place_id").String(),
				Description: loc.Get("description").String(),
			}
		}
	}

	return doc.Get("primary_address").String()
}
