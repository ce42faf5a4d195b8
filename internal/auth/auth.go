package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/api/middleware"
	"github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	APIKeyHeader = "X-API-Key"
	// APIKeyQueryParam lets clients that cannot set headers pass the key in
	// the URL.
	APIKeyQueryParam = "api_key_header_value"

	defaultTokenTTL = 24 * time.Hour
)

var (
	ErrUnauthorized = errors.New("missing or invalid credentials")
	ErrInvalidToken = errors.New("invalid token")
)

type Mode string

const (
	ModeDisabled    Mode = "disabled"
	ModeAPIKey      Mode = "api_key"
	ModeToken       Mode = "token"
	ModeAPIKeyToken Mode = "api_key+token"
)

type Config struct {
	APIKey      string
	TokenSecret string
	TokenIssuer string
	TokenTTL    time.Duration
}

type Claims struct {
	jwt.RegisteredClaims
}

// Authenticator accepts a request if it carries the configured API key or a
// bearer token signed with the configured secret. With neither configured
// every request is accepted.
type Authenticator struct {
	apiKey   string
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	logger   *zerolog.Logger
}

func New(cfg Config, logger *zerolog.Logger) *Authenticator {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	a := &Authenticator{
		apiKey:   cfg.APIKey,
		issuer:   cfg.TokenIssuer,
		tokenTTL: ttl,
		logger:   logger,
	}
	if cfg.TokenSecret != "" {
		a.secret = []byte(cfg.TokenSecret)
	}
	return a
}

func (a *Authenticator) Mode() Mode {
	switch {
	case a.apiKey != "" && a.secret != nil:
		return ModeAPIKeyToken
	case a.apiKey != "":
		return ModeAPIKey
	case a.secret != nil:
		return ModeToken
	default:
		return ModeDisabled
	}
}

// Authenticate checks the credentials on r. The API key wins when both an
// API key and a bearer token are present.
func (a *Authenticator) Authenticate(r *http.Request) error {
	if a.Mode() == ModeDisabled {
		return nil
	}

	if a.apiKey != "" {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			key = r.URL.Query().Get(APIKeyQueryParam)
		}
		if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(a.apiKey)) == 1 {
			return nil
		}
	}

	if a.secret != nil {
		raw, ok := bearerToken(r)
		if ok {
			if _, err := a.ParseToken(raw); err != nil {
				return fmt.Errorf("%w: %w", ErrUnauthorized, err)
			}
			return nil
		}
	}

	return ErrUnauthorized
}

// Filter rejects unauthenticated requests before the body is read.
func (a *Authenticator) Filter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if err := a.Authenticate(req.Request); err != nil {
		a.logger.Warn().
			Err(err).
			Str("request_id", middleware.GetRequestID(req)).
			Str("path", req.Request.URL.Path).
			Msg("Rejected unauthenticated request")
		resp.AddHeader("WWW-Authenticate", "Bearer")
		middleware.HandleError(resp, ErrUnauthorized, http.StatusUnauthorized)
		return
	}
	chain.ProcessFilter(req, resp)
}

// IssueToken signs an HS256 token for subject.
func (a *Authenticator) IssueToken(subject string) (string, error) {
	if a.secret == nil {
		return "", errors.New("token secret not configured")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) ParseToken(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
