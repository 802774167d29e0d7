/*
DESCRIPTION
  Datastore kinds and key helpers.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean).

  This file is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  This is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY
  or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public
  License for more details.

  You should have received a copy of the GNU General Public License in
  gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

// Package model defines the datastore entities of the conference
// service, namely profiles, conferences, sessions, speakers and cache
// slots, together with functions for storing and querying them.
//
// Conferences are children of the organizer's profile and sessions
// are children of their conference, so a conference's sessions can be
// found with an ancestor query.
package model

import (
	"fmt"
	"slices"

	"github.com/ausocean/confcentral/datastore"
)

// Datastore kinds.
const (
	typeProfile    = "Profile"
	typeConference = "Conference"
	typeSession    = "Session"
	typeSpeaker    = "Speaker"
	typeSlot       = "Slot"
)

// DecodeConferenceKey decodes a websafe conference key.
func DecodeConferenceKey(websafe string) (*datastore.Key, error) {
	return decodeKey(websafe, typeConference)
}

// DecodeSessionKey decodes a websafe session key.
func DecodeSessionKey(websafe string) (*datastore.Key, error) {
	return decodeKey(websafe, typeSession)
}

// DecodeSpeakerKey decodes a websafe speaker key.
func DecodeSpeakerKey(websafe string) (*datastore.Key, error) {
	return decodeKey(websafe, typeSpeaker)
}

// decodeKey decodes a websafe key, returning datastore.ErrInvalidKey
// if the key is malformed or is not of the given kind.
func decodeKey(websafe, kind string) (*datastore.Key, error) {
	k, err := datastore.DecodeKey(websafe)
	if err != nil {
		return nil, err
	}
	if k.Kind != kind {
		return nil, fmt.Errorf("%w: %s key expected, got %s", datastore.ErrInvalidKey, kind, k.Kind)
	}
	return k, nil
}

// addString appends s to list unless it is already present. It
// returns false if s was present.
func addString(list []string, s string) ([]string, bool) {
	if slices.Contains(list, s) {
		return list, false
	}
	return append(list, s), true
}

// removeString removes the first occurrence of s from list. It returns
// false if s was not present.
func removeString(list []string, s string) ([]string, bool) {
	i := slices.Index(list, s)
	if i == -1 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}
