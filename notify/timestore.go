/*
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

package notify

import (
	"context"
	"errors"
	"time"

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/model"
)

// TimeStore is an interface for notification persistence
type TimeStore interface {
	Sendable(ctx context.Context, key string, period time.Duration) (bool, error) // Returns true if a message is sendable.
	Sent(ctx context.Context, key string) error                                   // Records the time a message was sent.
}

// timeStore implements a TimeStore that uses a datastore for persistence.
type timeStore struct {
	store datastore.Store
}

// NewStore returns a TimeStore that uses a datastore for
// notification persistence.
func NewStore(store datastore.Store) TimeStore {
	return &timeStore{store: store}
}

// Sendable retrieves a notification time stored in a datastore slot
// and returns true either if (1) the specified period has elapsed
// since the last time a message with the given key was sent or (2) a
// message is being sent for the first time.
func (ts *timeStore) Sendable(ctx context.Context, key string, period time.Duration) (bool, error) {
	s, err := model.GetSlot(ctx, ts.store, slotName(key))

	switch {
	case err == nil:
		return time.Since(s.Updated) >= period, nil
	case errors.Is(err, datastore.ErrNoSuchEntity):
		return true, nil // No record of sending this message.
	default:
		return true, err // Unexpected datastore error.
	}
}

// Sent records the time that a message with the given key was sent.
func (ts *timeStore) Sent(ctx context.Context, key string) error {
	return model.PutSlot(ctx, ts.store, slotName(key), "") // Automatically updates the time.
}

// slotName prepends an underscore to keep the slot private.
func slotName(key string) string {
	return "_notify." + key
}
