/*
DESCRIPTION
  Slot datastore type and functions.

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
	"time"

	"github.com/ausocean/confcentral/datastore"
)

// Well-known slot names.
const (
	SlotAnnouncement    = "RECENT_ANNOUNCEMENTS"
	SlotFeaturedSpeaker = "FEATURED_SPEAKER"
)

// Slot is a named value which is overwritten wholesale on each
// update. Slots whose names begin with an underscore are private to
// the service.
type Slot struct {
	Name    string
	Value   string    `datastore:",noindex"`
	Updated time.Time // Date/time last updated.
}

// Copy copies a slot to dst, or returns a copy of the slot when dst is nil.
func (s *Slot) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var v *Slot
	if dst == nil {
		v = new(Slot)
	} else {
		var ok bool
		v, ok = dst.(*Slot)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*v = *s
	return v, nil
}

// GetCache returns nil, indicating no caching.
func (s *Slot) GetCache() datastore.Cache {
	return nil
}

// GetSlot returns the slot with the given name.
func GetSlot(ctx context.Context, store datastore.Store, name string) (*Slot, error) {
	var s Slot
	err := store.Get(ctx, store.NameKey(typeSlot, name, nil), &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSlot sets the value of a slot, updating its time.
func PutSlot(ctx context.Context, store datastore.Store, name, value string) error {
	s := &Slot{Name: name, Value: value, Updated: time.Now()}
	_, err := store.Put(ctx, store.NameKey(typeSlot, name, nil), s)
	return err
}

// DeleteSlot deletes a slot. Deleting a missing slot is not an error.
func DeleteSlot(ctx context.Context, store datastore.Store, name string) error {
	return store.Delete(ctx, store.NameKey(typeSlot, name, nil))
}

// SlotCache is a single-slot cache backed by Slot entities. Each
// name holds one value and the last write wins.
type SlotCache struct {
	store datastore.Store
}

// NewSlotCache returns a SlotCache that uses the given store.
func NewSlotCache(store datastore.Store) *SlotCache {
	return &SlotCache{store: store}
}

// Get returns the value held in the named slot, or the empty string
// if the slot is empty.
func (c *SlotCache) Get(ctx context.Context, name string) (string, error) {
	s, err := GetSlot(ctx, c.store, name)
	switch {
	case err == nil:
		return s.Value, nil
	case errors.Is(err, datastore.ErrNoSuchEntity):
		return "", nil
	default:
		return "", err
	}
}

// Set overwrites the value held in the named slot.
func (c *SlotCache) Set(ctx context.Context, name, value string) error {
	return PutSlot(ctx, c.store, name, value)
}

// Delete empties the named slot.
func (c *SlotCache) Delete(ctx context.Context, name string) error {
	return DeleteSlot(ctx, c.store, name)
}
