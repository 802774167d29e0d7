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

// AddSessionToWishlist adds a session to the caller's wishlist. The
// caller must be registered for the session's conference.
func (s *Service) AddSessionToWishlist(ctx context.Context, user *gauth.User, websafeKey string) (*BooleanMessage, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	key, err := sessionKey(websafeKey)
	if err != nil {
		return nil, err
	}
	sess, err := model.GetSession(ctx, s.store, key)
	if err != nil {
		return nil, notFound(err, "session", websafeKey)
	}
	ws := key.Encode()
	conf := sess.ParentKey

	_, err = s.updateProfile(ctx, user.ID, func(p *model.Profile) (bool, error) {
		if !p.IsAttending(conf) {
			return false, newError(ErrConflict, "You must be registered for the conference to add its sessions to your wishlist")
		}
		if !p.AddWish(ws) {
			return false, newError(ErrConflict, "Session is already in your wishlist")
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &BooleanMessage{Data: true}, nil
}

// RemoveSessionFromWishlist removes a session from the caller's
// wishlist, returning false if it was not present.
func (s *Service) RemoveSessionFromWishlist(ctx context.Context, user *gauth.User, websafeKey string) (*BooleanMessage, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	key, err := sessionKey(websafeKey)
	if err != nil {
		return nil, err
	}
	ws := key.Encode()

	var removed bool
	_, err = s.updateProfile(ctx, user.ID, func(p *model.Profile) (bool, error) {
		removed = p.RemoveWish(ws)
		return removed, nil
	})
	if err != nil {
		return nil, err
	}
	return &BooleanMessage{Data: removed}, nil
}

// GetSessionWishlist returns the sessions in the caller's wishlist.
// Sessions that no longer exist are skipped.
func (s *Service) GetSessionWishlist(ctx context.Context, user *gauth.User) (*SessionForms, error) {
	p, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	keys := make([]*datastore.Key, 0, len(p.SessionWishList))
	for _, ws := range p.SessionWishList {
		k, err := model.DecodeSessionKey(ws)
		if err != nil {
			s.log.Warning("invalid session key in wishlist", "user", user.ID, "key", ws)
			continue
		}
		keys = append(keys, k)
	}
	sessions, keys, err := model.GetSessions(ctx, s.store, keys)
	if err != nil {
		return nil, fmt.Errorf("could not get sessions: %w", err)
	}
	return sessionForms(sessions, keys), nil
}

// updateProfile applies fn to a user's profile in a transaction and
// returns the result. The profile is written only if fn returns true.
func (s *Service) updateProfile(ctx context.Context, userID string, fn func(p *model.Profile) (bool, error)) (*model.Profile, error) {
	key := model.ProfileKey(s.store, userID)
	var p model.Profile
	err := s.store.RunInTransaction(ctx, func(tx datastore.Transaction) error {
		p = model.Profile{}
		err := tx.Get(key, &p)
		if err != nil {
			return err
		}
		ok, err := fn(&p)
		if err != nil || !ok {
			return err
		}
		return tx.Put(key, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
