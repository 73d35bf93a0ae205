package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims поля токена, нужные интерфейсу: имя для приветствия и роль для доступа.
type Claims struct {
	Subject   string
	Username  string
	FullName  string
	Role      string
	ExpiresAt time.Time
}

// DecodeClaims читает payload токена без проверки подписи. Ключа у клиента нет,
// подпись проверяет сервер.
func DecodeClaims(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	c := &Claims{
		Username: stringClaim(mc, "username"),
		FullName: stringClaim(mc, "fullName"),
		Role:     strings.ToLower(stringClaim(mc, "role")),
	}
	if sub, err := mc.GetSubject(); err == nil {
		c.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if c.Username == "" {
		c.Username = c.Subject
	}
	return c, nil
}

func stringClaim(mc jwt.MapClaims, key string) string {
	if v, ok := mc[key].(string); ok {
		return v
	}
	return ""
}

// Expired true, если в токене есть exp и он уже прошёл
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// DisplayName имя для приветствия и для поля studentFullName
func (c *Claims) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.Username
}
