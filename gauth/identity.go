/*
DESCRIPTION
  Identity resolution for bearer credentials.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// Errors.
var (
	ErrNoCredential      = errors.New("no credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// User is an authenticated user. ID is stable for the lifetime of the
// user's account.
type User struct {
	ID    string
	Email string
	Name  string
}

// Nickname returns the user's name, or the local part of the user's
// email address if the name is unknown.
func (u *User) Nickname() string {
	if u.Name != "" {
		return u.Name
	}
	name, _, _ := strings.Cut(u.Email, "@")
	return name
}

// Resolver maps a bearer credential to a user.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*User, error)
}

// GoogleResolver resolves Google-signed ID tokens issued for a given
// OAuth client ID.
type GoogleResolver struct {
	audience string
}

// NewGoogleResolver returns a GoogleResolver for the given OAuth client ID.
func NewGoogleResolver(audience string) *GoogleResolver {
	return &GoogleResolver{audience: audience}
}

// Resolve validates an ID token and returns the user identified by its subject.
func (r *GoogleResolver) Resolve(ctx context.Context, credential string) (*User, error) {
	p, err := idtoken.Validate(ctx, credential, r.audience)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	u := &User{ID: p.Subject}
	u.Email, _ = p.Claims["email"].(string)
	u.Name, _ = p.Claims["name"].(string)
	return u, nil
}

// GoogleUserInfoURL is the OpenID Connect user info endpoint for Google accounts.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// UserInfoResolver resolves OAuth2 access tokens by presenting them to
// an OpenID Connect user info endpoint.
type UserInfoResolver struct {
	endpoint string
}

// NewUserInfoResolver returns a UserInfoResolver for the given endpoint.
func NewUserInfoResolver(endpoint string) *UserInfoResolver {
	return &UserInfoResolver{endpoint: endpoint}
}

// Resolve fetches the user info for an access token. JWTs are not
// access tokens and are refused without contacting the endpoint.
func (r *UserInfoResolver) Resolve(ctx context.Context, credential string) (*User, error) {
	_, _, err := jwt.NewParser().ParseUnverified(credential, jwt.MapClaims{})
	if err == nil {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidCredential)
	}
	clt := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := clt.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: user info returned status %d", ErrInvalidCredential, resp.StatusCode)
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	err = json.NewDecoder(resp.Body).Decode(&info)
	if err != nil {
		return nil, fmt.Errorf("could not decode user info: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%w: user info has no subject", ErrInvalidCredential)
	}
	return &User{ID: info.Sub, Email: info.Email, Name: info.Name}, nil
}

// ChainResolver tries each of its resolvers in turn and returns the
// first user resolved.
type ChainResolver []Resolver

// Resolve resolves a credential, which may carry a "Bearer " prefix.
func (c ChainResolver) Resolve(ctx context.Context, credential string) (*User, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if credential == "" {
		return nil, ErrNoCredential
	}
	var errs []error
	for _, r := range c {
		u, err := r.Resolve(ctx, credential)
		if err == nil {
			return u, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, errors.Join(errs...))
}
