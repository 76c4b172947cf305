package security

import (
	"github.com/bronystylecrazy/assetbridge/event"
	jwtgo "github.com/golang-jwt/jwt/v5"
)

const tokenTypeAccess = "access"

// Claims is the JWT body carried as the MQTT connect password.
type Claims struct {
	jwtgo.RegisteredClaims
	TokenType  string   `json:"token_type"`
	Realm      string   `json:"realm"`
	Username   string   `json:"preferred_username,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Superuser  bool     `json:"superuser,omitempty"`
	Restricted bool     `json:"restricted,omitempty"`
	EntityIDs  []string `json:"entity_ids,omitempty"`
}

func (c *Claims) authContext(username string) *event.AuthContext {
	if c.Username != "" {
		username = c.Username
	}
	return &event.AuthContext{
		Realm:      c.Realm,
		Subject:    c.Subject,
		Username:   username,
		Roles:      append([]string(nil), c.Roles...),
		Superuser:  c.Superuser,
		Restricted: c.Restricted,
		EntityIDs:  append([]string(nil), c.EntityIDs...),
	}
}
