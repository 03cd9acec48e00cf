package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeGoogle struct {
	server      *httptest.Server
	tokenStatus int
	userStatus  int
	userInfo    map[string]any
	gotCode     string
	gotBearer   string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		userStatus:  http.StatusOK,
		userInfo: map[string]any{
			"sub": "g-100", "email": "grace@example.com", "email_verified": true,
			"name": "Grace Hopper", "picture": "https://example.com/g.png",
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.gotCode = r.Form.Get("code")
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-access", "token_type": "Bearer", "expires_in": 3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.gotBearer = r.Header.Get("Authorization")
		if f.userStatus != http.StatusOK {
			w.WriteHeader(f.userStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.userInfo)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestGoogleProvider(t *testing.T, f *fakeGoogle) *GoogleProvider {
	t.Helper()
	p, err := NewGoogleProvider(GoogleProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "http://localhost:8080/api/auth/google/callback",
		StateSecret:  "state-secret",
		HTTPTimeout:  5 * time.Second,
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.server.URL + "/auth",
			TokenURL:  f.server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: f.server.URL + "/userinfo",
	})
	require.NoError(t, err)
	return p
}

func beginState(t *testing.T, p *GoogleProvider) (string, url.Values) {
	t.Helper()
	raw, err := p.BeginAuthorization(context.Background())
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query().Get("state"), u.Query()
}

func TestNewGoogleProvider_RequiresCredentials(t *testing.T) {
	_, err := NewGoogleProvider(GoogleProviderConfig{ClientID: "id", StateSecret: "s"})
	require.Error(t, err)

	_, err = NewGoogleProvider(GoogleProviderConfig{ClientID: "id", ClientSecret: "s", CallbackURL: "http://cb"})
	require.Error(t, err)
}

func TestGoogleProvider_BeginAuthorization(t *testing.T) {
	f := newFakeGoogle(t)
	p := newTestGoogleProvider(t, f)

	state, q := beginState(t, p)
	assert.NotEmpty(t, state)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "profile email", q.Get("scope"))
	assert.Equal(t, "http://localhost:8080/api/auth/google/callback", q.Get("redirect_uri"))
	assert.NoError(t, p.verifyState(state))
}

func TestGoogleProvider_CompleteAuthorization(t *testing.T) {
	f := newFakeGoogle(t)
	p := newTestGoogleProvider(t, f)
	state, _ := beginState(t, p)

	a, err := p.CompleteAuthorization(context.Background(), CallbackParams{Code: "auth-code", State: state})
	require.NoError(t, err)

	assert.Equal(t, "auth-code", f.gotCode)
	assert.Equal(t, "Bearer provider-access", f.gotBearer)
	assert.Equal(t, &IdentityAssertion{
		Provider: "google", Subject: "g-100", Email: "grace@example.com", EmailVerified: true,
		DisplayName: "Grace Hopper", Picture: "https://example.com/g.png",
	}, a)
}

func TestGoogleProvider_CompleteAuthorizationFailures(t *testing.T) {
	f := newFakeGoogle(t)
	p := newTestGoogleProvider(t, f)
	state, _ := beginState(t, p)

	_, err := p.CompleteAuthorization(context.Background(), CallbackParams{Error: "access_denied"})
	assert.Error(t, err)

	_, err = p.CompleteAuthorization(context.Background(), CallbackParams{State: state})
	assert.Error(t, err, "missing code")

	_, err = p.CompleteAuthorization(context.Background(), CallbackParams{Code: "c", State: "forged"})
	assert.Error(t, err, "forged state")

	f.tokenStatus = http.StatusBadRequest
	_, err = p.CompleteAuthorization(context.Background(), CallbackParams{Code: "c", State: state})
	assert.Error(t, err, "token exchange failure")

	f.tokenStatus = http.StatusOK
	f.userStatus = http.StatusInternalServerError
	_, err = p.CompleteAuthorization(context.Background(), CallbackParams{Code: "c", State: state})
	assert.Error(t, err, "userinfo failure")
}

func TestGoogleProvider_ExpiredState(t *testing.T) {
	f := newFakeGoogle(t)
	p := newTestGoogleProvider(t, f)
	start := time.Now()
	p.now = func() time.Time { return start }
	state, _ := beginState(t, p)

	p.now = func() time.Time { return start.Add(oauthStateTTL + time.Minute) }
	_, err := p.CompleteAuthorization(context.Background(), CallbackParams{Code: "c", State: state})
	assert.Error(t, err)
}

func TestGoogleProvider_BearerTokenIsNotAValidState(t *testing.T) {
	f := newFakeGoogle(t)
	p := newTestGoogleProvider(t, f)

	issuer, err := NewTokenIssuer("state-secret", time.Hour)
	require.NoError(t, err)
	tok, err := issuer.Issue("user-1")
	require.NoError(t, err)

	assert.Error(t, p.verifyState(tok))
}
