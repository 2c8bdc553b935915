package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/trustnet/core/internal/pkg/apierror"
)

// Identity is the verified view of a bearer credential: the provider's
// subject claim plus the email claim, when present.
type Identity struct {
	UserID string
	Email  string
}

// Options configures a Verifier against the identity provider.
type Options struct {
	JWKSURL  string
	Issuer   string
	Audience string
	// MinRefresh throttles JWKS re-fetches triggered by unknown key ids.
	MinRefresh time.Duration
	HTTPClient *http.Client
}

// Verifier validates RS256 bearer tokens against the provider's remote
// JWKS. Key material is cached and refreshed when an unknown key id is
// seen, at most once per MinRefresh.
type Verifier struct {
	opts   Options
	client *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewVerifier(opts Options) *Verifier {
	if opts.MinRefresh <= 0 {
		opts.MinRefresh = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{opts: opts, client: client, keys: map[string]*rsa.PublicKey{}}
}

type tokenClaims struct {
	Email string `json:"email"`
	jwtlib.RegisteredClaims
}

// Verify checks a raw bearer token and returns the identity it asserts.
// Every failure maps to the authentication kind so the boundary always
// answers 401 with a stable message.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, apierror.New(apierror.KindAuthentication, "not authenticated: token is required")
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"RS256"}),
		jwtlib.WithExpirationRequired(),
	}
	if v.opts.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(v.opts.Issuer))
	}
	if v.opts.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(v.opts.Audience))
	}

	claims := &tokenClaims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.keyForKID(ctx, kid)
	}, opts...)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindAuthentication, "not authenticated: invalid token", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, apierror.New(apierror.KindAuthentication, "not authenticated: invalid token")
	}

	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

func (v *Verifier) keyForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	last := v.fetchedAt
	v.mu.RUnlock()
	if ok {
		return key, nil
	}

	if time.Since(last) < v.opts.MinRefresh {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	key, ok = v.keys[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *Verifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.opts.JWKSURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	return nil
}

func parseRSAKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
