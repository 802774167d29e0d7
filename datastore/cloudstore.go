/*
AUTHORS
  Alan Noble <alan@ausocean.org>
  Scott Barnard <scott@ausocean.org>

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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/datastore"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// CloudStore implements Store for the Google Cloud Datastore.
type CloudStore struct {
	client *datastore.Client
}

// newCloudStore returns a new CloudStore, using the given URL to
// retrieve credentials and authenticate.
// The ID can be passed with an optional database name in the format
// <ID>/<Database_Name>. To obtain credentials from a Google storage
// bucket, URL takes the form gs://bucket_name/creds. A URL without a
// scheme is interpreted as a file. If the environment variable
// <ID>_CREDENTIALS is defined it overrides the supplied URL.
func newCloudStore(ctx context.Context, id, url string) (*CloudStore, error) {
	s := new(CloudStore)

	var db string
	parts := strings.Split(id, "/")
	switch len(parts) {
	case 1:
	case 2:
		db = parts[1]
	default:
		return nil, ErrInvalidStoreID
	}
	id = parts[0]

	ev := strings.ToUpper(id) + "_CREDENTIALS"
	if os.Getenv(ev) != "" {
		url = os.Getenv(ev)
	}

	var err error
	if url == "" {
		// Attempt authentication using the default credentials.
		s.client, err = datastore.NewClientWithDatabase(ctx, id, db)
		if err != nil {
			return nil, fmt.Errorf("could not create datastore client: %w", err)
		}
		return s, nil
	}

	creds, err := readCredentials(ctx, url)
	if err != nil {
		return nil, err
	}
	s.client, err = datastore.NewClientWithDatabase(ctx, id, db, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("could not create datastore client: %w", err)
	}
	return s, nil
}

// readCredentials reads credentials from a Google Storage bucket
// object (gs://bucket/object) or a file.
func readCredentials(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "gs://") {
		creds, err := os.ReadFile(url)
		if err != nil {
			return nil, fmt.Errorf("cannot read file %s: %w", url, err)
		}
		return creds, nil
	}

	url = url[5:]
	sep := strings.IndexByte(url, '/')
	if sep == -1 {
		return nil, fmt.Errorf("invalid gs bucket URL: %s", url)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create storage client: %w", err)
	}
	defer client.Close()
	r, err := client.Bucket(url[:sep]).Object(url[sep+1:]).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read gs bucket %s: %w", url, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// IDKey returns an ID key given a kind, an int64 ID and an optional parent.
func (s *CloudStore) IDKey(kind string, id int64, parent *Key) *Key {
	return datastore.IDKey(kind, id, parent)
}

// NameKey returns a name key given a kind, a (string) name and an optional parent.
func (s *CloudStore) NameKey(kind, name string, parent *Key) *Key {
	return datastore.NameKey(kind, name, parent)
}

// IncompleteKey returns an incomplete key given a kind and an optional parent.
func (s *CloudStore) IncompleteKey(kind string, parent *Key) *Key {
	return datastore.IncompleteKey(kind, parent)
}

// NewQuery returns a new CloudQuery and is a wrapper for
// datastore.NewQuery. If keysOnly is true the query is set to keys
// only, but keyParts are ignored.
func (s *CloudStore) NewQuery(kind string, keysOnly bool, keyParts ...string) Query {
	q := new(CloudQuery)
	q.query = datastore.NewQuery(kind)
	if keysOnly {
		q.query = q.query.KeysOnly()
	}
	return q
}

func (s *CloudStore) Get(ctx context.Context, key *Key, dst Entity) error {
	cache := dst.GetCache()
	if cache != nil {
		err := cache.Get(key, dst)
		if err == nil {
			return nil
		}
	}
	err := s.client.Get(ctx, key, dst)
	if err != nil {
		return err
	}
	if cache != nil {
		cache.Set(key, dst)
	}
	return nil
}

func (s *CloudStore) GetAll(ctx context.Context, query Query, dst interface{}) ([]*Key, error) {
	q, ok := query.(*CloudQuery)
	if !ok {
		return nil, errors.New("expected *CloudQuery type")
	}
	return s.client.GetAll(ctx, q.query, dst)
}

func (s *CloudStore) Create(ctx context.Context, key *Key, src Entity) error {
	probe, err := src.Copy(nil)
	if err != nil {
		return err
	}
	_, err = s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		err := tx.Get(key, probe)
		if err == nil {
			return ErrEntityExists
		}
		if err != ErrNoSuchEntity {
			return err
		}
		_, err = tx.Put(key, src)
		return err
	})
	return err
}

func (s *CloudStore) Put(ctx context.Context, key *Key, src Entity) (*Key, error) {
	key, err := s.client.Put(ctx, key, src)
	if err != nil {
		return key, err
	}
	if cache := src.GetCache(); cache != nil {
		cache.Set(key, src)
	}
	return key, err
}

func (s *CloudStore) Update(ctx context.Context, key *Key, fn func(Entity), dst Entity) error {
	return s.RunInTransaction(ctx, func(tx Transaction) error {
		err := tx.Get(key, dst)
		if err != nil {
			return err
		}
		fn(dst)
		return tx.Put(key, dst)
	})
}

// RunInTransaction runs fn in a datastore transaction. The datastore
// client retries fn when the transaction conflicts with another, so
// fn must be safe to run more than once. Cached entities written by
// the transaction are evicted from their caches once it commits.
func (s *CloudStore) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	var written []cachedKey
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		ct := &cloudTransaction{tx: tx}
		err := fn(ct)
		written = ct.written
		return err
	})
	if err != nil {
		return err
	}
	for _, w := range written {
		w.cache.Delete(w.key)
	}
	return nil
}

func (s *CloudStore) DeleteMulti(ctx context.Context, keys []*Key) error {
	err := s.client.DeleteMulti(ctx, keys)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if cache := GetCache(k.Kind); cache != nil {
			cache.Delete(k)
		}
	}
	return nil
}

func (s *CloudStore) Delete(ctx context.Context, key *Key) error {
	return s.DeleteMulti(ctx, []*Key{key})
}

// cachedKey is a key written in a transaction along with the cache of its kind.
type cachedKey struct {
	key   *Key
	cache Cache
}

// cloudTransaction implements Transaction for the Google Cloud Datastore.
type cloudTransaction struct {
	tx      *datastore.Transaction
	written []cachedKey
}

func (t *cloudTransaction) Get(key *Key, dst Entity) error {
	return t.tx.Get(key, dst)
}

func (t *cloudTransaction) Put(key *Key, src Entity) error {
	if key.Incomplete() {
		return fmt.Errorf("%w: incomplete key in transaction", ErrInvalidKey)
	}
	_, err := t.tx.Put(key, src)
	if err != nil {
		return err
	}
	if cache := src.GetCache(); cache != nil {
		t.written = append(t.written, cachedKey{key: key, cache: cache})
	}
	return nil
}

// CloudQuery implements Query for the Google Cloud Datastore.
type CloudQuery struct {
	query *datastore.Query
}

func (q *CloudQuery) Filter(filterStr string, value interface{}) error {
	if value == nil {
		return nil
	}
	q.query = q.query.Filter(filterStr, value)
	return nil
}

// FilterField filters a query.
func (q *CloudQuery) FilterField(fieldName string, operator string, value interface{}) error {
	if value == nil {
		return nil
	}
	if !ValidOperator(operator) {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, operator)
	}
	q.query = q.query.FilterField(fieldName, operator, value)
	return nil
}

// Ancestor restricts the query to entities descended from key.
func (q *CloudQuery) Ancestor(key *Key) {
	q.query = q.query.Ancestor(key)
}

func (q *CloudQuery) Order(fieldName string) {
	q.query = q.query.Order(fieldName)
}

// Limit limits the number of results returned.
func (q *CloudQuery) Limit(limit int) {
	q.query = q.query.Limit(limit)
}

// Offset sets the number of keys to skip before returning results.
func (q *CloudQuery) Offset(offset int) {
	q.query = q.query.Offset(offset)
}
