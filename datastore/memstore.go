/*
DESCRIPTION
  In-memory Store implementation.

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
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/Knetic/govaluate"
)

// MemStore implements Store in memory. It is intended for standalone
// mode and testing. Writers, including transactions, are serialized,
// which gives transactions the same isolation as the Cloud Datastore
// without the need for retries.
type MemStore struct {
	txMu     sync.Mutex   // Serializes writers.
	mu       sync.RWMutex // Guards entities and seq.
	entities map[string]*memEntry
	seq      int64
}

// memEntry is a stored entity and its key.
type memEntry struct {
	key    *Key
	entity Entity
	seq    int64 // Insertion order, used when a query has no order.
}

// NewMemStore returns a new, empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{entities: make(map[string]*memEntry)}
}

// IDKey returns an ID key given a kind, an int64 ID and an optional parent.
func (s *MemStore) IDKey(kind string, id int64, parent *Key) *Key {
	return datastore.IDKey(kind, id, parent)
}

// NameKey returns a name key given a kind, a (string) name and an optional parent.
func (s *MemStore) NameKey(kind, name string, parent *Key) *Key {
	return datastore.NameKey(kind, name, parent)
}

// IncompleteKey returns an incomplete key given a kind and an optional parent.
func (s *MemStore) IncompleteKey(kind string, parent *Key) *Key {
	return datastore.IncompleteKey(kind, parent)
}

// NewQuery returns a new MemQuery for the given kind.
func (s *MemStore) NewQuery(kind string, keysOnly bool, keyParts ...string) Query {
	return &MemQuery{kind: kind, keysOnly: keysOnly, limit: -1}
}

func (s *MemStore) Get(ctx context.Context, key *Key, dst Entity) error {
	cache := dst.GetCache()
	if cache != nil {
		err := cache.Get(key, dst)
		if err == nil {
			return nil
		}
	}
	s.mu.RLock()
	err := s.get(key, dst)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if cache != nil {
		cache.Set(key, dst)
	}
	return nil
}

// get copies the entity with the given key into dst. The caller must hold mu.
func (s *MemStore) get(key *Key, dst Entity) error {
	if key == nil || key.Incomplete() {
		return ErrInvalidKey
	}
	e, ok := s.entities[key.String()]
	if !ok {
		return ErrNoSuchEntity
	}
	_, err := e.entity.Copy(dst)
	return err
}

// GetAll runs the query and appends matching entities to dst, which
// must be a pointer to a slice of structs or struct pointers. For
// keys-only queries dst may be nil.
func (s *MemStore) GetAll(ctx context.Context, query Query, dst interface{}) ([]*Key, error) {
	q, ok := query.(*MemQuery)
	if !ok {
		return nil, errors.New("expected *MemQuery type")
	}
	if q.err != nil {
		return nil, q.err
	}

	var sv reflect.Value
	if !q.keysOnly || dst != nil {
		dv := reflect.ValueOf(dst)
		if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
			return nil, fmt.Errorf("%w: dst must be a pointer to a slice", ErrInvalidQuery)
		}
		sv = dv.Elem()
	}

	s.mu.RLock()
	var matches []*memEntry
	for _, e := range s.entities {
		if q.matches(e) {
			matches = append(matches, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].seq < matches[j].seq })
	for i := len(q.orders) - 1; i >= 0; i-- {
		o := q.orders[i]
		sort.SliceStable(matches, func(i, j int) bool {
			c := compareValues(property(matches[i].entity, o.field), property(matches[j].entity, o.field))
			if o.desc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.offset > 0 {
		if q.offset >= len(matches) {
			matches = nil
		} else {
			matches = matches[q.offset:]
		}
	}
	if q.limit >= 0 && q.limit < len(matches) {
		matches = matches[:q.limit]
	}

	keys := make([]*Key, 0, len(matches))
	for _, e := range matches {
		keys = append(keys, e.key)
		if !sv.IsValid() {
			continue
		}
		v, err := e.entity.Copy(nil)
		if err != nil {
			return nil, err
		}
		ev := reflect.ValueOf(v)
		switch sv.Type().Elem() {
		case ev.Type():
			sv.Set(reflect.Append(sv, ev))
		case ev.Type().Elem():
			sv.Set(reflect.Append(sv, ev.Elem()))
		default:
			return nil, ErrWrongType
		}
	}
	return keys, nil
}

func (s *MemStore) Create(ctx context.Context, key *Key, src Entity) error {
	probe, err := src.Copy(nil)
	if err != nil {
		return err
	}
	return s.RunInTransaction(ctx, func(tx Transaction) error {
		err := tx.Get(key, probe)
		if err == nil {
			return ErrEntityExists
		}
		if err != ErrNoSuchEntity {
			return err
		}
		return tx.Put(key, src)
	})
}

// Put stores src under key. An incomplete key is completed with a
// newly allocated ID, which is unique across the store.
func (s *MemStore) Put(ctx context.Context, key *Key, src Entity) (*Key, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	key, err := s.put(key, src)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if cache := src.GetCache(); cache != nil {
		cache.Set(key, src)
	}
	return key, nil
}

// put stores a copy of src. The caller must hold mu.
func (s *MemStore) put(key *Key, src Entity) (*Key, error) {
	if key == nil {
		return nil, ErrInvalidKey
	}
	s.seq++
	if key.Incomplete() {
		key = datastore.IDKey(key.Kind, s.seq, key.Parent)
	}
	v, err := src.Copy(nil)
	if err != nil {
		return nil, err
	}
	seq := s.seq
	if e, ok := s.entities[key.String()]; ok {
		seq = e.seq
	}
	s.entities[key.String()] = &memEntry{key: key, entity: v, seq: seq}
	return key, nil
}

func (s *MemStore) Update(ctx context.Context, key *Key, fn func(Entity), dst Entity) error {
	return s.RunInTransaction(ctx, func(tx Transaction) error {
		err := tx.Get(key, dst)
		if err != nil {
			return err
		}
		fn(dst)
		return tx.Put(key, dst)
	})
}

// RunInTransaction runs fn with exclusive write access to the store.
// Puts are buffered and applied only if fn returns nil.
func (s *MemStore) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTransaction{store: s, writes: make(map[string]memWrite)}
	err := fn(tx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	for _, w := range tx.order {
		_, err := s.put(tx.writes[w].key, tx.writes[w].entity)
		if err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	for _, w := range tx.writes {
		if cache := w.entity.GetCache(); cache != nil {
			cache.Delete(w.key)
		}
	}
	return nil
}

func (s *MemStore) Delete(ctx context.Context, key *Key) error {
	return s.DeleteMulti(ctx, []*Key{key})
}

func (s *MemStore) DeleteMulti(ctx context.Context, keys []*Key) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	for _, k := range keys {
		delete(s.entities, k.String())
	}
	s.mu.Unlock()
	for _, k := range keys {
		if cache := GetCache(k.Kind); cache != nil {
			cache.Delete(k)
		}
	}
	return nil
}

// memWrite is a buffered transactional put.
type memWrite struct {
	key    *Key
	entity Entity
}

// memTransaction implements Transaction for a MemStore.
type memTransaction struct {
	store  *MemStore
	writes map[string]memWrite
	order  []string
}

func (t *memTransaction) Get(key *Key, dst Entity) error {
	if key == nil || key.Incomplete() {
		return ErrInvalidKey
	}
	if w, ok := t.writes[key.String()]; ok {
		_, err := w.entity.Copy(dst)
		return err
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.get(key, dst)
}

func (t *memTransaction) Put(key *Key, src Entity) error {
	if key == nil || key.Incomplete() {
		return fmt.Errorf("%w: incomplete key in transaction", ErrInvalidKey)
	}
	v, err := src.Copy(nil)
	if err != nil {
		return err
	}
	k := key.String()
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = memWrite{key: key, entity: v}
	return nil
}

// MemQuery implements Query for a MemStore.
type MemQuery struct {
	kind     string
	keysOnly bool
	ancestor *Key
	filters  []memFilter
	orders   []memOrder
	limit    int
	offset   int
	err      error // First error encountered while building the query.
}

type memFilter struct {
	field string
	op    string
	value interface{}
}

type memOrder struct {
	field string
	desc  bool
}

// Filter filters a query given a filter string of the form
// "<property> <operator>", e.g. "Name =".
func (q *MemQuery) Filter(filterStr string, value interface{}) error {
	if value == nil {
		return nil
	}
	s := strings.TrimSpace(filterStr)
	i := strings.IndexAny(s, "=!<>")
	if i <= 0 {
		return q.fail(fmt.Errorf("%w: invalid filter %q", ErrInvalidQuery, filterStr))
	}
	return q.FilterField(strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:]), value)
}

// FilterField filters a query.
func (q *MemQuery) FilterField(fieldName string, operator string, value interface{}) error {
	if value == nil {
		return nil
	}
	if !ValidOperator(operator) {
		return q.fail(fmt.Errorf("%w: %q", ErrInvalidOperator, operator))
	}
	q.filters = append(q.filters, memFilter{field: fieldName, op: operator, value: value})
	return nil
}

// Ancestor restricts the query to entities descended from key.
func (q *MemQuery) Ancestor(key *Key) {
	q.ancestor = key
}

// Order orders the query by the given property, descending if the
// property name is prefixed by "-".
func (q *MemQuery) Order(fieldName string) {
	if strings.HasPrefix(fieldName, "-") {
		q.orders = append(q.orders, memOrder{field: strings.TrimSpace(fieldName[1:]), desc: true})
		return
	}
	q.orders = append(q.orders, memOrder{field: strings.TrimSpace(fieldName)})
}

// Limit limits the number of results returned. A negative limit means unlimited.
func (q *MemQuery) Limit(limit int) {
	q.limit = limit
}

// Offset sets the number of results to skip.
func (q *MemQuery) Offset(offset int) {
	q.offset = offset
}

func (q *MemQuery) fail(err error) error {
	if q.err == nil {
		q.err = err
	}
	return err
}

// matches returns true if the entry satisfies the query's kind,
// ancestor and filters.
func (q *MemQuery) matches(e *memEntry) bool {
	if e.key.Kind != q.kind {
		return false
	}
	if q.ancestor != nil && !HasAncestor(e.key, q.ancestor) {
		return false
	}
	for _, f := range q.filters {
		if !f.matches(e.entity) {
			return false
		}
	}
	return true
}

// comparators holds one compiled expression per operator. Each
// expression compares parameter "p" (the property value) with "v"
// (the filter value).
var comparators = func() map[string]*govaluate.EvaluableExpression {
	m := make(map[string]*govaluate.EvaluableExpression)
	for op := range operators {
		gop := op
		if op == "=" {
			gop = "=="
		}
		expr, err := govaluate.NewEvaluableExpression("p " + gop + " v")
		if err != nil {
			panic(fmt.Sprintf("could not compile comparator %q: %v", op, err))
		}
		m[op] = expr
	}
	return m
}()

// matches returns true if the entity's property satisfies the filter.
// As with the Cloud Datastore, a multi-valued property matches if any
// of its values match, and entities lacking the property never match.
func (f memFilter) matches(ent Entity) bool {
	v := reflect.ValueOf(ent)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return false
	}
	fv := v.FieldByName(f.field)
	if !fv.IsValid() {
		return false
	}
	want := normalize(reflect.ValueOf(f.value))
	if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() != reflect.Uint8 {
		for i := 0; i < fv.Len(); i++ {
			if compare(f.op, normalize(fv.Index(i)), want) {
				return true
			}
		}
		return false
	}
	return compare(f.op, normalize(fv), want)
}

// compare evaluates "p op v". Values of incomparable types never match.
func compare(op string, p, v interface{}) bool {
	res, err := comparators[op].Evaluate(map[string]interface{}{"p": p, "v": v})
	if err != nil {
		return false
	}
	b, ok := res.(bool)
	return ok && b
}

// normalize converts a property value into a form understood by the
// comparators: numbers and times become float64, keys become strings.
func normalize(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	}
	switch x := v.Interface().(type) {
	case time.Time:
		return float64(x.UnixNano())
	case *Key:
		if x == nil {
			return nil
		}
		return x.String()
	}
	return v.Interface()
}

// property returns the normalized value of the named property, or
// the first value of a multi-valued property.
func property(ent Entity, field string) interface{} {
	v := reflect.ValueOf(ent)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	fv := v.FieldByName(field)
	if !fv.IsValid() {
		return nil
	}
	if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() != reflect.Uint8 {
		if fv.Len() == 0 {
			return nil
		}
		return normalize(fv.Index(0))
	}
	return normalize(fv)
}

// compareValues orders normalized values. Nil sorts first, and values
// of different types are ordered by type name.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}
