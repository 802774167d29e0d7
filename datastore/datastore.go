/*
DESCRIPTION
  Store abstraction over a document store with hierarchical keys.

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

// Package datastore provides a Store interface for persisting
// entities addressed by hierarchical keys, with an implementation
// for the Google Cloud Datastore and an in-memory implementation for
// standalone mode and testing.
package datastore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
)

// Key is a datastore key. Keys may have a parent, which places the
// entity in the parent's entity group.
type Key = datastore.Key

// Errors.
var (
	ErrNoSuchEntity     = datastore.ErrNoSuchEntity
	ErrEntityExists     = errors.New("entity exists")
	ErrWrongType        = errors.New("wrong type")
	ErrInvalidStoreID   = errors.New("invalid store ID")
	ErrInvalidStoreKind = errors.New("invalid store kind")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidKey       = errors.New("invalid key")
)

// Entity defines the methods that all datastore entities must implement.
type Entity interface {
	// Copy copies the entity to dst, or returns a copy of the entity
	// when dst is nil.
	Copy(dst Entity) (Entity, error)

	// GetCache returns the entity's cache, or nil if the entity is not cached.
	GetCache() Cache
}

// Store defines the datastore interface.
type Store interface {
	IDKey(kind string, id int64, parent *Key) *Key                             // Returns an ID key.
	NameKey(kind, name string, parent *Key) *Key                               // Returns a name key.
	IncompleteKey(kind string, parent *Key) *Key                               // Returns an incomplete key.
	NewQuery(kind string, keysOnly bool, keyParts ...string) Query             // Returns a new query.
	Get(ctx context.Context, key *Key, dst Entity) error                       // Gets a single entity by its key.
	GetAll(ctx context.Context, q Query, dst interface{}) ([]*Key, error)      // Runs a query and returns all matching entities.
	Create(ctx context.Context, key *Key, src Entity) error                    // Creates a single entity by its key, failing if it exists.
	Put(ctx context.Context, key *Key, src Entity) (*Key, error)               // Puts a single entity by its key.
	Update(ctx context.Context, key *Key, fn func(Entity), dst Entity) error   // Atomically updates a single entity by its key.
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error // Runs fn atomically.
	Delete(ctx context.Context, key *Key) error                                // Deletes a single entity by its key.
	DeleteMulti(ctx context.Context, keys []*Key) error                        // Deletes multiple entities by their keys.
}

// Transaction is the view of a Store available inside
// RunInTransaction. Puts are only visible to other readers once the
// transaction commits.
type Transaction interface {
	Get(key *Key, dst Entity) error
	Put(key *Key, src Entity) error
}

// Query defines the query interface, which is a subset of Google
// Cloud's datastore.Query. Filter and FilterField ignore nil values.
type Query interface {
	Filter(filterStr string, value interface{}) error                 // Filters a query with a property followed by an operator, e.g. "Name =".
	FilterField(fieldName string, operator string, value interface{}) error // Filters a query.
	Ancestor(key *Key)                                                // Restricts results to descendants of key.
	Order(fieldName string)                                           // Orders a query, descending if fieldName starts with "-".
	Limit(limit int)                                                  // Limits the number of results returned.
	Offset(offset int)                                                // How many results to skip.
}

// NewStore returns a new Store. If kind is "cloud" a CloudStore is
// returned. If kind is "memory" a MemStore is returned. The id is the
// Google Cloud project ID, optionally followed by a database name, and
// url locates the credentials; both are ignored by a MemStore.
func NewStore(ctx context.Context, kind, id, url string) (Store, error) {
	switch kind {
	case "cloud":
		return newCloudStore(ctx, id, url)
	case "memory":
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStoreKind, kind)
	}
}

// DecodeKey decodes a websafe key string, as produced by Key.Encode.
func DecodeKey(encoded string) (*Key, error) {
	if encoded == "" {
		return nil, ErrInvalidKey
	}
	k, err := datastore.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return k, nil
}

// HasAncestor returns true if anc is key or one of key's ancestors.
func HasAncestor(key, anc *Key) bool {
	for k := key; k != nil; k = k.Parent {
		if k.Equal(anc) {
			return true
		}
	}
	return false
}

// operators are the comparison operators supported by FilterField.
var operators = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

// ValidOperator returns true if op is a supported comparison operator.
func ValidOperator(op string) bool {
	return operators[op]
}
