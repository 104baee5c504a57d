package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
)

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userResponse) toUserRef() domainauth.UserRef {
	return domainauth.UserRef{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

// signupResponse is either a session or, when confirmation is pending, a bare user.
type signupResponse struct {
	tokenResponse
	userResponse
}

// toSession builds a session from a token response. The expiry comes from
// expires_at, then expires_in, then the token's exp claim.
func (c *Client) toSession(ctx context.Context, tr tokenResponse) (*domainauth.SessionToken, error) {
	if tr.AccessToken == "" {
		return nil, errors.New("token response has no access token")
	}

	var (
		claims *AccessClaims
		err    error
	)
	if c.verifier != nil {
		claims, err = c.verifier.Verify(ctx, tr.AccessToken)
		if err != nil {
			return nil, err
		}
	} else if claims, err = ParseUnverified(tr.AccessToken); err != nil {
		// opaque tokens are allowed; expiry then comes from the response only
		claims = nil
	}

	s := &domainauth.SessionToken{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		User:         tr.User.toUserRef(),
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	default:
		s.ExpiresAt = claims.Expiry()
	}

	if claims != nil {
		if s.User.ID == "" {
			s.User.ID = claims.Subject
		} else if claims.Subject != "" && claims.Subject != s.User.ID {
			return nil, fmt.Errorf("token subject %q does not match user %q", claims.Subject, s.User.ID)
		}
		if s.User.Email == "" {
			s.User.Email = claims.Email
		}
	}
	if s.User.ID == "" {
		return nil, errors.New("token response has no user")
	}
	return s, nil
}

func toOAuth2(s *domainauth.SessionToken) *oauth2.Token {
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    tokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.ExpiresAt,
	}
}
