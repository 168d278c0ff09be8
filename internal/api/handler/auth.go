package handler

import (
	"errors"
	"strings"
	"time"

	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/authz"
	"familyeats/backend/internal/config"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const principalKey = "principal"

// Claims are the JWT claims the moderation API understands. The subject is
// the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for userID with the configured secret.
func IssueToken(cfg config.AuthConfig, userID, role string, now time.Time) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates signature, algorithm, issuer and expiry and returns
// the caller.
func ParseToken(cfg config.AuthConfig, raw string) (authz.Principal, error) {
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return authz.Principal{}, err
	}
	if claims.Subject == "" || claims.Role == "" {
		return authz.Principal{}, errors.New("token lacks subject or role")
	}
	return authz.Principal{UserID: claims.Subject, Role: claims.Role}, nil
}

// authenticate resolves the bearer token into a principal. allowQuery also
// accepts ?access_token=, for WebSocket clients that cannot set headers.
func (h *Handler) authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			raw = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		} else if allowQuery {
			raw = c.Query("access_token")
		}
		if raw == "" {
			h.fail(c, apperr.Unauthenticated(h.msg(c, "error.authentication")))
			return
		}

		p, err := ParseToken(h.auth, raw)
		if err != nil {
			h.log.Debug("rejected token", zap.Error(err))
			h.fail(c, apperr.Unauthenticated(h.msg(c, "error.authentication")))
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// require lets the request through only if the caller may perform action.
func (h *Handler) require(action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.authz.Can(principal(c), action) {
			h.fail(c, apperr.Forbidden(h.msg(c, "error.forbidden")))
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) authz.Principal {
	p, _ := c.Get(principalKey)
	pr, _ := p.(authz.Principal)
	return pr
}
