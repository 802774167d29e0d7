/*
DESCRIPTION
  Session datastore type and functions.

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

// Session represents a conference session. Its key is a child of
// its conference's key, which is also held in websafe form in
// ParentKey. SpeakerID holds websafe speaker keys.
type Session struct {
	Name          string
	Highlights    string `datastore:",noindex"`
	SpeakerID     []string
	Duration      int64 // Minutes.
	TypeOfSession string
	Date          time.Time
	Month         int64
	StartTime     string // HH:MM.
	ParentKey     string
}

// Copy copies a session to dst, or returns a copy of the session when dst is nil.
func (s *Session) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var v *Session
	if dst == nil {
		v = new(Session)
	} else {
		var ok bool
		v, ok = dst.(*Session)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*v = *s
	v.SpeakerID = slices.Clone(s.SpeakerID)
	return v, nil
}

// GetCache returns nil, indicating no caching.
func (s *Session) GetCache() datastore.Cache {
	return nil
}

// PutSession creates a session belonging to the given conference,
// returning its key.
func PutSession(ctx context.Context, store datastore.Store, conferenceKey *datastore.Key, s *Session) (*datastore.Key, error) {
	s.ParentKey = conferenceKey.Encode()
	return store.Put(ctx, store.IncompleteKey(typeSession, conferenceKey), s)
}

// GetSession returns the session with the given key.
func GetSession(ctx context.Context, store datastore.Store, key *datastore.Key) (*Session, error) {
	var s Session
	err := store.Get(ctx, key, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessions returns the sessions with the given keys, in order,
// along with their keys. Sessions that do not exist are skipped.
func GetSessions(ctx context.Context, store datastore.Store, keys []*datastore.Key) ([]Session, []*datastore.Key, error) {
	sessions := make([]Session, 0, len(keys))
	found := make([]*datastore.Key, 0, len(keys))
	for _, k := range keys {
		s, err := GetSession(ctx, store, k)
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, *s)
		found = append(found, k)
	}
	return sessions, found, nil
}

// GetSessionsByConference returns the sessions of a conference.
func GetSessionsByConference(ctx context.Context, store datastore.Store, conferenceKey *datastore.Key) ([]Session, []*datastore.Key, error) {
	q := store.NewQuery(typeSession, false)
	q.Ancestor(conferenceKey)
	return getSessions(ctx, store, q)
}

// GetSessionsByType returns the sessions of a conference with the given type.
func GetSessionsByType(ctx context.Context, store datastore.Store, conferenceKey *datastore.Key, typ SessionType) ([]Session, []*datastore.Key, error) {
	q := store.NewQuery(typeSession, false)
	q.Ancestor(conferenceKey)
	err := q.Filter("TypeOfSession =", typ.String())
	if err != nil {
		return nil, nil, err
	}
	return getSessions(ctx, store, q)
}

// GetSessionsBySpeaker returns the sessions given by a speaker, across
// all conferences. If conferenceKey is non-nil, only sessions of that
// conference are returned.
func GetSessionsBySpeaker(ctx context.Context, store datastore.Store, speakerKey string, conferenceKey *datastore.Key) ([]Session, []*datastore.Key, error) {
	q := store.NewQuery(typeSession, false)
	if conferenceKey != nil {
		q.Ancestor(conferenceKey)
	}
	err := q.Filter("SpeakerID =", speakerKey)
	if err != nil {
		return nil, nil, err
	}
	return getSessions(ctx, store, q)
}

func getSessions(ctx context.Context, store datastore.Store, q datastore.Query) ([]Session, []*datastore.Key, error) {
	var sessions []Session
	keys, err := store.GetAll(ctx, q, &sessions)
	if err != nil {
		return nil, nil, err
	}
	return sessions, keys, nil
}
