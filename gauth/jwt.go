/*
AUTHORS
  Alan Noble <alan@ausocean.org>

LICENSE
  Copyright (C) 2024-2026 the Australian Ocean Lab (AusOcean)

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  It is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package gauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PutClaims digitally signs JSON Web Token (JWT) claims using the
// supplied secret by means of the HMAC-SHA-256 signing method.
func PutClaims(claims map[string]interface{}, secret []byte) (string, error) {
	if secret == nil {
		return "", errors.New("missing secret")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	tokString, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return tokString, nil
}

// GetClaims retrieves JWT claims from a token string using the supplied secret.
// Any "Bearer" string prefix will be ignored. Expired tokens are rejected.
func GetClaims(tokString string, secret []byte) (map[string]interface{}, error) {
	tokString = strings.TrimPrefix(tokString, "Bearer ")
	if tokString == "" {
		return nil, ErrNoCredential
	}
	if secret == nil {
		return nil, errors.New("missing secret")
	}
	tok, err := jwt.Parse(tokString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: could not parse token: %v", ErrInvalidCredential, err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !tok.Valid || !ok {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// IssueToken returns a signed token identifying the user, which
// expires after the given duration.
func IssueToken(u User, secret []byte, ttl time.Duration) (string, error) {
	return PutClaims(map[string]interface{}{
		"sub":   u.ID,
		"email": u.Email,
		"name":  u.Name,
		"exp":   time.Now().Add(ttl).Unix(),
	}, secret)
}

// JWTResolver resolves tokens signed with a shared HMAC secret, such
// as those created by IssueToken.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver returns a JWTResolver that verifies tokens with secret.
func NewJWTResolver(secret []byte) *JWTResolver {
	return &JWTResolver{secret: secret}
}

// Resolve returns the user identified by the token's "sub" claim,
// falling back to its "email" claim.
func (r *JWTResolver) Resolve(ctx context.Context, credential string) (*User, error) {
	claims, err := GetClaims(credential, r.secret)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:    stringClaim(claims, "sub"),
		Email: stringClaim(claims, "email"),
		Name:  stringClaim(claims, "name"),
	}
	if u.ID == "" {
		u.ID = u.Email
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidCredential)
	}
	return u, nil
}

// stringClaim returns the named claim if it is a string.
func stringClaim(claims map[string]interface{}, name string) string {
	s, _ := claims[name].(string)
	return s
}
