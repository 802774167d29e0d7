/*
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

package conference

import (
	"context"
	"fmt"

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/gauth"
	"github.com/ausocean/confcentral/model"
)

// RegisterForConference registers the caller for a conference, taking
// one seat. Registering twice, or when no seats remain, is a conflict.
func (s *Service) RegisterForConference(ctx context.Context, user *gauth.User, websafeKey string) (*BooleanMessage, error) {
	return s.register(ctx, user, websafeKey, true)
}

// UnregisterFromConference unregisters the caller from a conference,
// releasing their seat. It returns false if the caller was not registered.
func (s *Service) UnregisterFromConference(ctx context.Context, user *gauth.User, websafeKey string) (*BooleanMessage, error) {
	return s.register(ctx, user, websafeKey, false)
}

// register registers or unregisters the caller. The conference and
// the profile are updated in one transaction, which serializes
// registrations for the same conference.
func (s *Service) register(ctx context.Context, user *gauth.User, websafeKey string, reg bool) (*BooleanMessage, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	key, err := conferenceKey(websafeKey)
	if err != nil {
		return nil, err
	}
	profileKey := model.ProfileKey(s.store, user.ID)
	ws := key.Encode()

	var changed bool
	err = s.store.RunInTransaction(ctx, func(tx datastore.Transaction) error {
		changed = false
		var c model.Conference
		err := tx.Get(key, &c)
		if err != nil {
			return notFound(err, "conference", websafeKey)
		}
		var p model.Profile
		err = tx.Get(profileKey, &p)
		if err != nil {
			return err
		}

		if reg {
			if p.IsAttending(ws) {
				return newError(ErrConflict, "You have already registered for this conference")
			}
			if c.SeatsAvailable <= 0 {
				return newError(ErrConflict, "There are no seats available.")
			}
			p.Attend(ws)
			c.SeatsAvailable--
		} else {
			if !p.Unattend(ws) {
				return nil
			}
			c.SeatsAvailable++
		}

		err = tx.Put(key, &c)
		if err != nil {
			return err
		}
		err = tx.Put(profileKey, &p)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Debug("registration changed", "conference", ws, "user", user.ID, "registered", reg)
		s.enqueue(ctx, TaskSetAnnouncement, nil)
	}
	return &BooleanMessage{Data: changed}, nil
}

// GetConferencesToAttend returns the conferences the caller is
// registered for. Conferences that no longer exist are skipped.
func (s *Service) GetConferencesToAttend(ctx context.Context, user *gauth.User) (*ConferenceForms, error) {
	p, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	keys := make([]*datastore.Key, 0, len(p.ConferenceKeysToAttend))
	for _, ws := range p.ConferenceKeysToAttend {
		k, err := model.DecodeConferenceKey(ws)
		if err != nil {
			s.log.Warning("invalid conference key in profile", "user", user.ID, "key", ws)
			continue
		}
		keys = append(keys, k)
	}
	confs, keys, err := model.GetConferences(ctx, s.store, keys)
	if err != nil {
		return nil, fmt.Errorf("could not get conferences: %w", err)
	}
	return s.conferenceForms(ctx, confs, keys)
}
