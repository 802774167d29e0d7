/*
DESCRIPTION
  Profile datastore type and functions.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean).

  This is free software: you can redistribute it and/or modify it
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

package model

import (
	"context"
	"errors"
	"slices"

	"github.com/ausocean/confcentral/datastore"
)

// Profile represents a user's profile. There is exactly one profile
// per user, keyed by the user's ID. The attend list and wishlist hold
// websafe conference and session keys respectively.
type Profile struct {
	DisplayName            string
	MainEmail              string
	TeeShirtSize           string
	ConferenceKeysToAttend []string
	SessionWishList        []string
}

// Copy copies a profile to dst, or returns a copy of the profile when dst is nil.
func (p *Profile) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var v *Profile
	if dst == nil {
		v = new(Profile)
	} else {
		var ok bool
		v, ok = dst.(*Profile)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*v = *p
	v.ConferenceKeysToAttend = slices.Clone(p.ConferenceKeysToAttend)
	v.SessionWishList = slices.Clone(p.SessionWishList)
	return v, nil
}

// GetCache returns nil, indicating no caching.
func (p *Profile) GetCache() datastore.Cache {
	return nil
}

// IsAttending returns true if the profile is registered for the conference.
func (p *Profile) IsAttending(conferenceKey string) bool {
	return slices.Contains(p.ConferenceKeysToAttend, conferenceKey)
}

// Attend adds a conference to the attend list, returning false if it
// is already present.
func (p *Profile) Attend(conferenceKey string) bool {
	var ok bool
	p.ConferenceKeysToAttend, ok = addString(p.ConferenceKeysToAttend, conferenceKey)
	return ok
}

// Unattend removes a conference from the attend list, returning false
// if it was not present.
func (p *Profile) Unattend(conferenceKey string) bool {
	var ok bool
	p.ConferenceKeysToAttend, ok = removeString(p.ConferenceKeysToAttend, conferenceKey)
	return ok
}

// HasWish returns true if the session is in the profile's wishlist.
func (p *Profile) HasWish(sessionKey string) bool {
	return slices.Contains(p.SessionWishList, sessionKey)
}

// AddWish adds a session to the wishlist, returning false if it is already present.
func (p *Profile) AddWish(sessionKey string) bool {
	var ok bool
	p.SessionWishList, ok = addString(p.SessionWishList, sessionKey)
	return ok
}

// RemoveWish removes a session from the wishlist, returning false if it was not present.
func (p *Profile) RemoveWish(sessionKey string) bool {
	var ok bool
	p.SessionWishList, ok = removeString(p.SessionWishList, sessionKey)
	return ok
}

// ProfileKey returns the key of the profile for the given user.
func ProfileKey(store datastore.Store, userID string) *datastore.Key {
	return store.NameKey(typeProfile, userID, nil)
}

// GetProfile returns the profile for the given user.
func GetProfile(ctx context.Context, store datastore.Store, userID string) (*Profile, error) {
	var p Profile
	err := store.Get(ctx, ProfileKey(store, userID), &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PutProfile creates or updates the profile for the given user.
func PutProfile(ctx context.Context, store datastore.Store, userID string, p *Profile) error {
	_, err := store.Put(ctx, ProfileKey(store, userID), p)
	return err
}

// GetOrCreateProfile returns the profile for the given user, creating
// it with the given display name and email if it does not exist.
func GetOrCreateProfile(ctx context.Context, store datastore.Store, userID, displayName, email string) (*Profile, error) {
	p, err := GetProfile(ctx, store, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, err
	}

	p = &Profile{
		DisplayName:  displayName,
		MainEmail:    email,
		TeeShirtSize: SizeNotSpecified.String(),
	}
	err = store.Create(ctx, ProfileKey(store, userID), p)
	if errors.Is(err, datastore.ErrEntityExists) {
		// Created concurrently.
		return GetProfile(ctx, store, userID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
