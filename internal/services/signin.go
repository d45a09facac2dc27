package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"quizform-backend/internal/models"
)

// FormsBodyScope lets the token create and edit forms.
const FormsBodyScope = "https://www.googleapis.com/auth/forms.body"

const statePurpose = "forms_signin"

var ErrInvalidState = errors.New("invalid or expired sign-in state")

type SignInConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	StateSecret  string
	StateTTL     time.Duration

	// Endpoint overrides Google's OAuth endpoints.
	Endpoint *oauth2.Endpoint
}

// SignInService runs the Google consent flow for the Forms scope. The token
// goes back to the caller; nothing is stored server side.
type SignInService struct {
	oauth       *oauth2.Config
	stateSecret []byte
	stateTTL    time.Duration
}

func NewSignInService(cfg SignInConfig) *SignInService {
	endpoint := google.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SignInService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{FormsBodyScope},
			Endpoint:     endpoint,
		},
		stateSecret: []byte(cfg.StateSecret),
		stateTTL:    ttl,
	}
}

// LoginURL returns the consent URL with a signed, short-lived state.
func (s *SignInService) LoginURL() (string, error) {
	state, err := s.signState(time.Now())
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// Exchange verifies state and trades the authorization code for a token.
func (s *SignInService) Exchange(ctx context.Context, code, state string) (*models.FormsToken, error) {
	if err := s.verifyState(state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, &ValidationError{Fields: map[string]string{"code": "missing authorization code"}}
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &UnauthorizedError{Message: "Google rejected the sign-in. Please sign in again."}
		}
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return &models.FormsToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
		ExpiresAt:   tok.Expiry,
	}, nil
}

func (s *SignInService) signState(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"purpose": statePurpose,
		"nonce":   uuid.NewString(),
		"exp":     now.Add(s.stateTTL).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.stateSecret)
}

func (s *SignInService) verifyState(state string) error {
	if state == "" {
		return ErrInvalidState
	}
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.stateSecret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidState
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != statePurpose {
		return ErrInvalidState
	}
	return nil
}
