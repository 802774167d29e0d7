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

// Package gauth provides the service's authentication helpers:
// secrets loading, signed tokens and identity resolution.
package gauth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/ausocean/utils/filemap"
)

// The URL scheme that represents a Google Storage Bucket.
const gsbScheme = "gs://"

// ErrMissingSecret is returned when a required secret is absent or empty.
var ErrMissingSecret = errors.New("missing secret")

// GetSecrets looks up secrets from either a file or Google Storage
// bucket specified by the <PROJECTID>_SECRETS environment variable.
// Each line is a colon-separated key and value.
// The keys argument specifies required keys.
func GetSecrets(ctx context.Context, projectID string, keys []string) (map[string]string, error) {
	ev := strings.ToUpper(projectID) + "_SECRETS"
	url := os.Getenv(ev)
	if url == "" {
		return nil, errors.New(ev + " environment variable not defined")
	}

	var b []byte
	var err error
	if strings.HasPrefix(url, gsbScheme) {
		b, err = ReadGoogleStorageBucket(ctx, url)
	} else {
		b, err = os.ReadFile(url)
	}
	if err != nil {
		return nil, err
	}
	return ParseSecrets(string(b), keys)
}

// ParseSecrets parses colon-separated secrets, one per line, and
// checks that the required keys are present.
func ParseSecrets(s string, keys []string) (map[string]string, error) {
	// Strip carriage returns, if any.
	s = strings.ReplaceAll(s, "\r", "")

	m := filemap.Split(s, "\n", ":")
	for _, k := range keys {
		if m[k] == "" {
			return m, fmt.Errorf("%w: %s", ErrMissingSecret, k)
		}
	}
	return m, nil
}

// ReadGoogleStorageBucket read the contents of the Google Storage
// bucket specified by the URL.  The URL must take the form:
// gs://<bucket_name>/<object_name>
func ReadGoogleStorageBucket(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, gsbScheme) {
		return nil, fmt.Errorf("invalid GSB URL %s", url)
	}
	url = url[len(gsbScheme):]
	sep := strings.IndexByte(url, '/')
	if sep == -1 {
		return nil, fmt.Errorf("invalid GSB URL %s", url)
	}

	clt, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot create GSB client: %w", err)
	}
	defer clt.Close()
	r, err := clt.Bucket(url[:sep]).Object(url[sep+1:]).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot create GSB reader: %w", err)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return b, fmt.Errorf("cannot read GSB: %w", err)
	}
	return b, nil
}

// GetSecret gets a single secret from either a file or Google Storage
// bucket specified by the <PROJECTID>_SECRETS environment variable.
func GetSecret(ctx context.Context, projectID, key string) (string, error) {
	secrets, err := GetSecrets(ctx, projectID, []string{key})
	if err != nil {
		return "", err
	}
	return secrets[key], nil
}

// GetHexSecret gets a single hex-encoded secret and returns the decoded bytes.
func GetHexSecret(ctx context.Context, projectID, key string) ([]byte, error) {
	v, err := GetSecret(ctx, projectID, key)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(v)
}
