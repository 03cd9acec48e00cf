package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	oauthStatePurpose = "oauth_state"
	oauthStateTTL     = 10 * time.Minute
)

var googleScopes = []string{"profile", "email"}

type GoogleProviderConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// StateSecret signs the state parameter so no server-side state is kept.
	StateSecret string
	HTTPTimeout time.Duration

	// Overridable for tests; default to Google's endpoints.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	stateSecret []byte
	httpClient  *http.Client
	timeout     time.Duration
	now         func() time.Time
}

func NewGoogleProvider(cfg GoogleProviderConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.CallbackURL == "" {
		return nil, errors.New("google provider: client id, secret and callback url are required")
	}
	if cfg.StateSecret == "" {
		return nil, errors.New("google provider: state secret is required")
	}
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = endpoints.Google
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = googleUserInfoURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       googleScopes,
		},
		userInfoURL: userInfoURL,
		stateSecret: []byte(cfg.StateSecret),
		httpClient:  &http.Client{Timeout: timeout},
		timeout:     timeout,
		now:         time.Now,
	}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) BeginAuthorization(_ context.Context) (string, error) {
	state, err := p.signState()
	if err != nil {
		return "", err
	}
	return p.oauth.AuthCodeURL(state), nil
}

func (p *GoogleProvider) CompleteAuthorization(ctx context.Context, cb CallbackParams) (*IdentityAssertion, error) {
	if cb.Error != "" {
		return nil, fmt.Errorf("google returned %s: %s", cb.Error, cb.ErrorDescription)
	}
	if cb.Code == "" {
		return nil, errors.New("missing authorization code")
	}
	if err := p.verifyState(cb.State); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth.Exchange(ctx, cb.Code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return p.fetchUserInfo(ctx, token)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*IdentityAssertion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}

	return &IdentityAssertion{
		Provider:      p.Name(),
		Subject:       info.Sub,
		Email:         strings.TrimSpace(info.Email),
		EmailVerified: info.EmailVerified,
		DisplayName:   info.Name,
		Picture:       info.Picture,
	}, nil
}

type stateClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

func (p *GoogleProvider) signState() (string, error) {
	now := p.now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
		},
		Purpose: oauthStatePurpose,
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.stateSecret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return state, nil
}

func (p *GoogleProvider) verifyState(state string) error {
	if state == "" {
		return errors.New("missing oauth state")
	}
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return p.stateSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return fmt.Errorf("invalid oauth state: %w", err)
	}
	if claims.Purpose != oauthStatePurpose {
		return errors.New("invalid oauth state: wrong purpose")
	}
	return nil
}
