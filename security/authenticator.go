// Package security authenticates MQTT connections from signed tokens and
// decides which subscriptions and writes an identity may perform.
package security

import (
	"fmt"
	"time"

	"github.com/bronystylecrazy/assetbridge/event"
	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Authenticator struct {
	config Config
	key    []byte
	now    func() time.Time
}

func NewAuthenticator(config Config) (*Authenticator, error) {
	cfg := config.withDefaults()
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	return &Authenticator{
		config: cfg,
		key:    []byte(cfg.Secret),
		now:    time.Now,
	}, nil
}

// Authenticate resolves the identity behind a connect packet. An empty
// password is an anonymous connection and yields a nil context.
func (a *Authenticator) Authenticate(realm, username, password string) (*event.AuthContext, error) {
	if realm == "" {
		return nil, ErrMissingRealm
	}
	if password == "" {
		if a.config.DenyAnonymous {
			return nil, ErrAnonymousDisabled
		}
		return nil, nil
	}

	claims, err := a.Validate(password)
	if err != nil {
		return nil, err
	}
	if !claims.Superuser && claims.Realm != realm {
		return nil, fmt.Errorf("%w: got=%s want=%s", ErrRealmMismatch, claims.Realm, realm)
	}
	if username != "" && claims.Username != "" && claims.Username != username {
		return nil, ErrUsernameMismatch
	}

	auth := claims.authContext(username)
	if claims.Superuser {
		auth.Realm = realm
	}
	return auth, nil
}

// Validate parses and verifies a signed access token.
func (a *Authenticator) Validate(tokenValue string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtgo.ParseWithClaims(tokenValue, claims, func(*jwtgo.Token) (any, error) {
		return a.key, nil
	},
		jwtgo.WithValidMethods([]string{jwtgo.SigningMethodHS256.Alg()}),
		jwtgo.WithIssuer(a.config.Issuer),
		jwtgo.WithExpirationRequired(),
		jwtgo.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.TokenType)
	}
	if claims.Realm == "" {
		return nil, fmt.Errorf("%w: missing realm claim", ErrInvalidToken)
	}
	return claims, nil
}

// Issue signs an access token for auth. A ttl of zero uses the configured
// token lifetime.
func (a *Authenticator) Issue(auth event.AuthContext, ttl time.Duration) (string, time.Time, error) {
	if auth.Realm == "" {
		return "", time.Time{}, ErrMissingRealm
	}
	if ttl <= 0 {
		ttl = a.config.TokenTTL
	}
	now := a.now().UTC()
	expiresAt := now.Add(ttl)

	subject := auth.Subject
	if subject == "" {
		subject = auth.Username
	}
	claims := Claims{
		RegisteredClaims: jwtgo.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.config.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwtgo.NewNumericDate(now),
			NotBefore: jwtgo.NewNumericDate(now),
			ExpiresAt: jwtgo.NewNumericDate(expiresAt),
		},
		TokenType:  tokenTypeAccess,
		Realm:      auth.Realm,
		Username:   auth.Username,
		Roles:      auth.Roles,
		Superuser:  auth.Superuser,
		Restricted: auth.Restricted,
		EntityIDs:  auth.EntityIDs,
	}

	signed, err := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
