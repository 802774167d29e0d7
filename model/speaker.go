/*
DESCRIPTION
  Speaker datastore type and functions.

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
	"slices"

	"github.com/ausocean/confcentral/datastore"
)

// Speaker represents a session speaker. Speakers are not modified once
// created, which makes them safe to cache.
type Speaker struct {
	Name     string
	Bio      string `datastore:",noindex"`
	Company  []string
	Projects []string
}

// Copy copies a speaker to dst, or returns a copy of the speaker when dst is nil.
func (sp *Speaker) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var v *Speaker
	if dst == nil {
		v = new(Speaker)
	} else {
		var ok bool
		v, ok = dst.(*Speaker)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*v = *sp
	v.Company = slices.Clone(sp.Company)
	v.Projects = slices.Clone(sp.Projects)
	return v, nil
}

var speakerCache = datastore.RegisterCache(typeSpeaker, datastore.NewEntityCache())

// GetCache returns the speaker cache.
func (sp *Speaker) GetCache() datastore.Cache {
	return speakerCache
}

// PutSpeaker creates a speaker, returning its key.
func PutSpeaker(ctx context.Context, store datastore.Store, sp *Speaker) (*datastore.Key, error) {
	return store.Put(ctx, store.IncompleteKey(typeSpeaker, nil), sp)
}

// GetSpeaker returns the speaker with the given key.
func GetSpeaker(ctx context.Context, store datastore.Store, key *datastore.Key) (*Speaker, error) {
	var sp Speaker
	err := store.Get(ctx, key, &sp)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// GetSpeakers returns all speakers ordered by name.
func GetSpeakers(ctx context.Context, store datastore.Store) ([]Speaker, []*datastore.Key, error) {
	q := store.NewQuery(typeSpeaker, false)
	q.Order("Name")
	var speakers []Speaker
	keys, err := store.GetAll(ctx, q, &speakers)
	if err != nil {
		return nil, nil, err
	}
	return speakers, keys, nil
}
