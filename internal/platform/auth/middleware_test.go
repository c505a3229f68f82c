package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims(subject string, roles ...string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles: roles,
	}
}

// runMiddleware sends a request with the given Authorization header through mw and
// reports whether the inner handler ran.
func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, authHeader string, inner echo.HandlerFunc) (bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		if inner != nil {
			return inner(c)
		}
		return c.String(http.StatusOK, "ok")
	})(c)
	return called, err
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != want {
		t.Errorf("expected %d, got %d", want, httpErr.Code)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	expired := validClaims("user-123")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong key", "Bearer " + createTestToken(t, validClaims("user-123"), []byte("another-key"))},
		{"expired", "Bearer " + createTestToken(t, expired, testSigningKey)},
	}

	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, err := runMiddleware(t, mw, tt.header, nil)
			if called {
				t.Error("handler must not run")
			}
			assertStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ClaimsExtraction(t *testing.T) {
	tokenStr := createTestToken(t, validClaims("user-456", "clinician", "admin"), testSigningKey)

	called, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+tokenStr,
		func(c echo.Context) error {
			ctx := c.Request().Context()
			if uid := UserIDFromContext(ctx); uid != "user-456" {
				t.Errorf("expected user_id=user-456, got %s", uid)
			}
			roles := RolesFromContext(ctx)
			if len(roles) != 2 || roles[0] != "clinician" || roles[1] != "admin" {
				t.Errorf("expected roles=[clinician admin], got %v", roles)
			}
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestJWTMiddleware_IssuerAndAudience(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "https://idp.test", Audience: "healthsense"}

	good := validClaims("u1")
	good.Issuer = "https://idp.test"
	good.Audience = jwt.ClaimStrings{"healthsense"}
	if _, err := runMiddleware(t, JWTMiddleware(cfg), "Bearer "+createTestToken(t, good, testSigningKey), nil); err != nil {
		t.Errorf("expected token to pass, got %v", err)
	}

	bad := good
	bad.Audience = jwt.ClaimStrings{"other"}
	_, err := runMiddleware(t, JWTMiddleware(cfg), "Bearer "+createTestToken(t, bad, testSigningKey), nil)
	assertStatus(t, err, http.StatusUnauthorized)
}

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(JWKSResponse{Keys: []JWKSKey{{
			Kty: "RSA",
			Kid: kid,
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJWTMiddleware_JWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var hits int32
	srv := jwksServer(t, "kid-1", &key.PublicKey, &hits)

	sign := func(kid string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("firebase-uid", "clinician"))
		tok.Header["kid"] = kid
		s, err := tok.SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	mw := JWTMiddleware(JWTConfig{JWKSURL: srv.URL})
	for i := 0; i < 2; i++ {
		if _, err := runMiddleware(t, mw, "Bearer "+sign("kid-1"), nil); err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected JWKS to be fetched once, got %d", got)
	}

	_, err = runMiddleware(t, mw, "Bearer "+sign("unknown-kid"), nil)
	assertStatus(t, err, http.StatusUnauthorized)

	// An HS256 token must not be accepted by an RS256 verifier.
	_, err = runMiddleware(t, mw, "Bearer "+createTestToken(t, validClaims("x"), testSigningKey), nil)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware(t *testing.T) {
	called, err := runMiddleware(t, DevAuthMiddleware(), "", func(c echo.Context) error {
		ctx := c.Request().Context()
		if uid := UserIDFromContext(ctx); uid != "dev-user" {
			t.Errorf("expected user_id=dev-user, got %s", uid)
		}
		if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != RoleAdmin {
			t.Errorf("expected roles=[admin], got %v", roles)
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected handler to run, err=%v", err)
	}
}
