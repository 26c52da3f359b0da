package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
)

// ErrNotConfigured is the operator-facing failure for missing LiveKit
// settings, distinct from any per-request error.
var ErrNotConfigured = errors.New("livekit url, api key and api secret must be configured")

// RoleDJ marks the identity allowed to publish into the media room.
const RoleDJ = "dj"

// Service mints LiveKit capability tokens for room participants.
type Service struct {
	url       string
	apiKey    string
	apiSecret string
}

// New builds the token service. An incomplete configuration is allowed at
// construction; minting fails loudly instead.
func New(url, apiKey, apiSecret string) *Service {
	return &Service{url: url, apiKey: apiKey, apiSecret: apiSecret}
}

// Configured reports whether all LiveKit settings are present.
func (s *Service) Configured() bool {
	return s.url != "" && s.apiKey != "" && s.apiSecret != ""
}

// URL returns the media relay WebSocket URL clients should connect to.
func (s *Service) URL() string {
	return s.url
}

// Mint creates a join token for identity in room. DJs may create the room
// and publish; everyone may subscribe and publish data. Tokens expire after
// an hour.
func (s *Service) Mint(identity, room, role, name string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	isDJ := role == RoleDJ
	canPublish := isDJ
	canPublishData := true
	canSubscribe := true

	at := auth.NewAccessToken(s.apiKey, s.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           room,
		RoomCreate:     isDJ,
		CanPublish:     &canPublish,
		CanPublishData: &canPublishData,
		CanSubscribe:   &canSubscribe,
	}
	if name == "" {
		name = identity
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(time.Hour)

	token, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return token, nil
}
