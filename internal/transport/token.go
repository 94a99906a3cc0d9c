package transport

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/livekit/protocol/auth"
)

const DefaultTokenTTL = 10 * time.Minute

// AccessClaims is the decoded form of a media server access token.
type AccessClaims struct {
	Name  string           `json:"name,omitempty"`
	Video *auth.VideoGrant `json:"video,omitempty"`
	jwt.RegisteredClaims
}

type TokenSigner struct {
	apiKey    string
	apiSecret string
	now       func() time.Time
}

func NewTokenSigner(apiKey, apiSecret string) (*TokenSigner, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("transport api key and secret are required")
	}
	return &TokenSigner{apiKey: apiKey, apiSecret: apiSecret, now: time.Now}, nil
}

// JoinToken lets identity join room with publish and subscribe rights.
func (s *TokenSigner) JoinToken(identity, name, room string, ttl time.Duration) (string, time.Time, error) {
	if identity == "" {
		identity = "anonymous"
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	yes := true
	grant := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           room,
		CanPublish:     &yes,
		CanSubscribe:   &yes,
		CanPublishData: &yes,
	}

	tok, err := auth.NewAccessToken(s.apiKey, s.apiSecret).
		SetIdentity(identity).
		SetName(name).
		AddGrant(grant).
		SetValidFor(ttl).
		ToJWT()
	return tok, s.now().Add(ttl), err
}

// ServiceToken authorizes server-side room administration calls.
func (s *TokenSigner) ServiceToken(room string) (string, error) {
	return auth.NewAccessToken(s.apiKey, s.apiSecret).
		AddGrant(&auth.VideoGrant{
			RoomCreate: true,
			RoomList:   true,
			RoomAdmin:  true,
			Room:       room,
		}).
		SetValidFor(time.Minute).
		ToJWT()
}

// Parse verifies a token minted by this signer.
func (s *TokenSigner) Parse(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.apiSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.apiKey),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
