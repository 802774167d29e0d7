/*
AUTHORS
  Alan Noble <alan@ausocean.org>

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

package datastore

import (
	"fmt"
	"sync"
)

// Cache defines the (optional) caching interface used by Entity.
type Cache interface {
	Set(key *Key, src Entity) error // Set adds or updates a value to the cache.
	Get(key *Key, dst Entity) error // Get retrieves a value from the cache, or returns ErrCacheMiss.
	Delete(key *Key)                // Delete removes a value from the cache.
	Reset()                         // Reset resets (clears) the cache.
}

// EntityCache, which implements Cache, represents a cache for holding
// datastore entities indexed by key. Keys are compared by their
// encoded form, so keys with equal parents are equal regardless of
// pointer identity.
type EntityCache struct {
	data  map[string]Entity
	mutex sync.RWMutex
}

// ErrCacheMiss is the type of error returned when a key is not found in the cache.
type ErrCacheMiss struct {
	key string
}

// Error returns an error string for errors of type ErrCacheMiss.
func (e ErrCacheMiss) Error() string {
	return fmt.Sprintf("cache miss for key: %s", e.key)
}

// NewEntityCache returns a new EntityCache.
func NewEntityCache() *EntityCache {
	return &EntityCache{data: make(map[string]Entity)}
}

// Set adds or updates a value to the cache.
func (c *EntityCache) Set(key *Key, src Entity) error {
	v, err := src.Copy(nil)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[key.String()] = v
	return nil
}

// Get retrieves a value from the cache, or returns ErrCacheMiss.
func (c *EntityCache) Get(key *Key, dst Entity) error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	v, ok := c.data[key.String()]
	if !ok {
		return ErrCacheMiss{key.String()}
	}
	_, err := v.Copy(dst)
	return err
}

// Delete removes a value from the cache.
func (c *EntityCache) Delete(key *Key) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.data, key.String())
}

// Reset resets (clears) the cache.
func (c *EntityCache) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = map[string]Entity{}
}

var (
	cachesMutex sync.Mutex
	caches      = map[string]Cache{}
)

// RegisterCache associates a cache with an entity kind, so that
// deletions by key can evict cached entities of that kind.
func RegisterCache(kind string, cache Cache) Cache {
	cachesMutex.Lock()
	defer cachesMutex.Unlock()
	caches[kind] = cache
	return cache
}

// GetCache returns the cache registered for kind, or nil.
func GetCache(kind string) Cache {
	cachesMutex.Lock()
	defer cachesMutex.Unlock()
	return caches[kind]
}
