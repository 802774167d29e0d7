/*
DESCRIPTION
  Conference datastore type and functions.

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
	"time"

	"github.com/ausocean/confcentral/datastore"
)

// Conference defaults.
const (
	DefaultCity = "Default City"
)

// DefaultTopics returns the topics given to a conference created without any.
func DefaultTopics() []string {
	return []string{"Default", "Topic"}
}

// NearlySoldOut is the number of seats at or below which a conference
// is announced as nearly sold out.
const NearlySoldOut = 5

// Conference represents a conference. Its key is a child of the
// organizer's profile key. SeatsAvailable starts out equal to
// MaxAttendees and is only changed by registration.
type Conference struct {
	Name            string
	Description     string `datastore:",noindex"`
	OrganizerUserID string
	Topics          []string
	City            string
	StartDate       time.Time
	Month           int64 // Month of StartDate, or 0 if there is no start date.
	EndDate         time.Time
	MaxAttendees    int64
	SeatsAvailable  int64
}

// Copy copies a conference to dst, or returns a copy of the conference when dst is nil.
func (c *Conference) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var v *Conference
	if dst == nil {
		v = new(Conference)
	} else {
		var ok bool
		v, ok = dst.(*Conference)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*v = *c
	v.Topics = slices.Clone(c.Topics)
	return v, nil
}

// GetCache returns nil, indicating no caching.
func (c *Conference) GetCache() datastore.Cache {
	return nil
}

// NewConferenceKey returns an incomplete conference key belonging to the organizer.
func NewConferenceKey(store datastore.Store, organizerID string) *datastore.Key {
	return store.IncompleteKey(typeConference, ProfileKey(store, organizerID))
}

// PutConference creates or updates a conference, returning its
// (completed) key.
func PutConference(ctx context.Context, store datastore.Store, key *datastore.Key, c *Conference) (*datastore.Key, error) {
	return store.Put(ctx, key, c)
}

// GetConference returns the conference with the given key.
func GetConference(ctx context.Context, store datastore.Store, key *datastore.Key) (*Conference, error) {
	var c Conference
	err := store.Get(ctx, key, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConferences returns the conferences with the given keys along
// with their keys. Missing conferences are skipped.
func GetConferences(ctx context.Context, store datastore.Store, keys []*datastore.Key) ([]Conference, []*datastore.Key, error) {
	var confs []Conference
	var found []*datastore.Key
	for _, k := range keys {
		c, err := GetConference(ctx, store, k)
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		confs = append(confs, *c)
		found = append(found, k)
	}
	return confs, found, nil
}

// NewConferenceQuery returns a new query over all conferences.
func NewConferenceQuery(store datastore.Store) datastore.Query {
	return store.NewQuery(typeConference, false)
}

// GetConferencesByQuery runs a conference query.
func GetConferencesByQuery(ctx context.Context, store datastore.Store, q datastore.Query) ([]Conference, []*datastore.Key, error) {
	var confs []Conference
	keys, err := store.GetAll(ctx, q, &confs)
	if err != nil {
		return nil, nil, err
	}
	return confs, keys, nil
}

// GetConferencesByOrganizer returns the conferences created by the
// given user, ordered by name.
func GetConferencesByOrganizer(ctx context.Context, store datastore.Store, organizerID string) ([]Conference, []*datastore.Key, error) {
	q := NewConferenceQuery(store)
	q.Ancestor(ProfileKey(store, organizerID))
	q.Order("Name")
	return GetConferencesByQuery(ctx, store, q)
}

// GetNearlySoldOutConferences returns the conferences that have at
// least one but no more than NearlySoldOut seats available, ordered
// by seats available then name.
func GetNearlySoldOutConferences(ctx context.Context, store datastore.Store) ([]Conference, error) {
	q := NewConferenceQuery(store)
	q.Order("SeatsAvailable")
	q.Order("Name")
	err := q.FilterField("SeatsAvailable", ">", 0)
	if err != nil {
		return nil, err
	}
	err = q.FilterField("SeatsAvailable", "<=", NearlySoldOut)
	if err != nil {
		return nil, err
	}
	confs, _, err := GetConferencesByQuery(ctx, store, q)
	return confs, err
}
