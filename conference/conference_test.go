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
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/ausocean/utils/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/filter"
	"github.com/ausocean/confcentral/gauth"
	"github.com/ausocean/confcentral/model"
	"github.com/ausocean/confcentral/tasks"
)

var (
	alice = &gauth.User{ID: "alice", Email: "alice@example.com", Name: "Alice"}
	bob   = &gauth.User{ID: "bob", Email: "bob@example.com"}
)

// queued is a task recorded by testQueue.
type queued struct {
	name   string
	params tasks.Params
}

// testQueue records tasks without running them.
type testQueue struct {
	mu    sync.Mutex
	tasks []queued
}

func (q *testQueue) Add(ctx context.Context, name string, params tasks.Params) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, queued{name: name, params: params})
	return fmt.Sprint(len(q.tasks)), nil
}

func (q *testQueue) names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var names []string
	for _, t := range q.tasks {
		names = append(names, t.name)
	}
	return names
}

func (q *testQueue) last() queued {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks[len(q.tasks)-1]
}

func newTestService(t *testing.T) (*Service, *testQueue, datastore.Store) {
	// The speaker cache outlives the store.
	datastore.GetCache("Speaker").Reset()
	store := datastore.NewMemStore()
	q := &testQueue{}
	log := logging.New(logging.Debug, io.Discard, false)
	return New(store, q, model.NewSlotCache(store), nil, log), q, store
}

// assertKind asserts that err is of the given kind.
func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	assert.Truef(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
}

func createConference(t *testing.T, s *Service, user *gauth.User, form ConferenceForm) *ConferenceForm {
	t.Helper()
	f, err := s.CreateConference(context.Background(), user, &form)
	require.NoError(t, err)
	return f
}

func createSpeaker(t *testing.T, s *Service, name string) string {
	t.Helper()
	f, err := s.CreateSpeaker(context.Background(), alice, &SpeakerForm{Name: name})
	require.NoError(t, err)
	return f.WebsafeKey
}

func createSession(t *testing.T, s *Service, conf, name string, speakers ...string) *SessionForm {
	t.Helper()
	f, err := s.CreateSession(context.Background(), alice, &SessionForm{Name: name, ParentKey: conf, SpeakerID: speakers})
	require.NoError(t, err)
	return f
}

func TestUnauthorized(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	ops := map[string]func(user *gauth.User) error{
		"GetProfile": func(u *gauth.User) error { _, err := s.GetProfile(ctx, u); return err },
		"CreateConference": func(u *gauth.User) error {
			_, err := s.CreateConference(ctx, u, &ConferenceForm{Name: "x"})
			return err
		},
		"GetConferencesCreated":  func(u *gauth.User) error { _, err := s.GetConferencesCreated(ctx, u); return err },
		"RegisterForConference":  func(u *gauth.User) error { _, err := s.RegisterForConference(ctx, u, "x"); return err },
		"GetConferencesToAttend": func(u *gauth.User) error { _, err := s.GetConferencesToAttend(ctx, u); return err },
		"GetSessionWishlist":     func(u *gauth.User) error { _, err := s.GetSessionWishlist(ctx, u); return err },
		"CreateSpeaker": func(u *gauth.User) error {
			_, err := s.CreateSpeaker(ctx, u, &SpeakerForm{Name: "x"})
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assertKind(t, op(nil), ErrUnauthorized)
			assertKind(t, op(&gauth.User{}), ErrUnauthorized)
		})
	}

	// Derived reads need no identity.
	msg, err := s.GetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", msg.Data)
}

func TestProfile(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := s.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, "alice@example.com", p.MainEmail)
	assert.Equal(t, "NOT_SPECIFIED", p.TeeShirtSize)

	p, err = s.GetProfile(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "bob", p.DisplayName)

	tests := []struct {
		name     string
		form     ProfileMiniForm
		wantName string
		wantSize string
		wantErr  error
	}{
		{name: "display name", form: ProfileMiniForm{DisplayName: "Al"}, wantName: "Al", wantSize: "NOT_SPECIFIED"},
		{name: "tee shirt size", form: ProfileMiniForm{TeeShirtSize: "XL_M"}, wantName: "Al", wantSize: "XL_M"},
		{name: "empty", form: ProfileMiniForm{}, wantName: "Al", wantSize: "XL_M"},
		{name: "invalid size", form: ProfileMiniForm{TeeShirtSize: "HUGE"}, wantErr: ErrBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := s.SaveProfile(ctx, alice, &test.form)
			if test.wantErr != nil {
				assertKind(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantName, p.DisplayName)
			assert.Equal(t, test.wantSize, p.TeeShirtSize)
		})
	}
}

func TestCreateConference(t *testing.T) {
	s, q, _ := newTestService(t)
	ctx := context.Background()

	c := createConference(t, s, alice, ConferenceForm{Name: "Defaults", MaxAttendees: int64Ptr(0)})
	assert.Equal(t, int64(0), *c.SeatsAvailable)
	assert.Equal(t, "Default City", c.City)
	assert.Equal(t, []string{"Default", "Topic"}, c.Topics)
	assert.Equal(t, int64(0), *c.Month)
	assert.Equal(t, "alice", c.OrganizerUserID)
	assert.Equal(t, "Alice", c.OrganizerDisplayName)
	assert.NotEmpty(t, c.WebsafeKey)

	task := q.last()
	assert.Equal(t, TaskSendEmail, task.name)
	assert.Equal(t, "alice@example.com", task.params["email"])
	assert.Contains(t, task.params["body"], "Name: Defaults")

	c = createConference(t, s, alice, ConferenceForm{
		Name:         "GopherCon",
		City:         "Sydney",
		Topics:       []string{"Go"},
		StartDate:    "2024-06-01T09:00:00",
		EndDate:      "2024-06-03",
		MaxAttendees: int64Ptr(10),
	})
	assert.Equal(t, int64(10), *c.SeatsAvailable)
	assert.Equal(t, int64(6), *c.Month)
	assert.Equal(t, "2024-06-01", c.StartDate)
	assert.Equal(t, "2024-06-03", c.EndDate)
	assert.Equal(t, "Sydney", c.City)

	for _, form := range []ConferenceForm{
		{},
		{Name: "bad date", StartDate: "June"},
		{Name: "bad end date", EndDate: "2024-13-45"},
		{Name: "negative", MaxAttendees: int64Ptr(-1)},
	} {
		_, err := s.CreateConference(ctx, alice, &form)
		assertKind(t, err, ErrBadRequest)
	}
}

func TestUpdateConference(t *testing.T) {
	s, _, store := newTestService(t)
	ctx := context.Background()

	c := createConference(t, s, alice, ConferenceForm{Name: "Before", City: "Hobart", MaxAttendees: int64Ptr(10)})
	_, err := s.RegisterForConference(ctx, bob, c.WebsafeKey)
	require.NoError(t, err)

	missing := store.IDKey("Conference", 999999, model.ProfileKey(store, "alice")).Encode()
	tests := []struct {
		name      string
		user      *gauth.User
		key       string
		form      ConferenceForm
		wantErr   error
		wantName  string
		wantMax   int64
		wantSeats int64
		wantMonth int64
	}{
		{name: "not organizer", user: bob, key: c.WebsafeKey, form: ConferenceForm{Name: "Mine"}, wantErr: ErrForbidden},
		{name: "malformed key", user: alice, key: "not a key", wantErr: ErrBadRequest},
		{name: "missing", user: alice, key: missing, wantErr: ErrNotFound},
		{name: "name", user: alice, key: c.WebsafeKey, form: ConferenceForm{Name: "After"}, wantName: "After", wantMax: 10, wantSeats: 9},
		{name: "start date", user: alice, key: c.WebsafeKey, form: ConferenceForm{StartDate: "2024-11-20"}, wantName: "After", wantMax: 10, wantSeats: 9, wantMonth: 11},
		{name: "shrink", user: alice, key: c.WebsafeKey, form: ConferenceForm{MaxAttendees: int64Ptr(5)}, wantName: "After", wantMax: 5, wantSeats: 4, wantMonth: 11},
		{name: "seats ignored", user: alice, key: c.WebsafeKey, form: ConferenceForm{SeatsAvailable: int64Ptr(100)}, wantName: "After", wantMax: 5, wantSeats: 4, wantMonth: 11},
		{name: "below registered", user: alice, key: c.WebsafeKey, form: ConferenceForm{MaxAttendees: int64Ptr(0)}, wantErr: ErrConflict},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := s.UpdateConference(ctx, test.user, test.key, &test.form)
			if test.wantErr != nil {
				assertKind(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantName, got.Name)
			assert.Equal(t, "Hobart", got.City)
			assert.Equal(t, test.wantMax, *got.MaxAttendees)
			assert.Equal(t, test.wantSeats, *got.SeatsAvailable)
			assert.Equal(t, test.wantMonth, *got.Month)
		})
	}

	got, err := s.GetConference(ctx, bob, c.WebsafeKey)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.Equal(t, "Alice", got.OrganizerDisplayName)
	assert.Equal(t, int64(4), *got.SeatsAvailable)

	_, err = s.GetConference(ctx, bob, missing)
	assertKind(t, err, ErrNotFound)
}

func TestQueryConferences(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	for _, c := range []ConferenceForm{
		{Name: "Delta", City: "London", MaxAttendees: int64Ptr(20), StartDate: "2024-06-10"},
		{Name: "Alpha", City: "London", MaxAttendees: int64Ptr(5), StartDate: "2024-07-01"},
		{Name: "Charlie", City: "Paris", MaxAttendees: int64Ptr(50), Topics: []string{"Go", "Cloud"}},
		{Name: "Bravo", City: "London", MaxAttendees: int64Ptr(10), StartDate: "2024-06-20"},
	} {
		createConference(t, s, alice, c)
	}

	tests := []struct {
		name    string
		filters []filter.Filter
		want    []string
		wantErr error
	}{
		{name: "none", want: []string{"Alpha", "Bravo", "Charlie", "Delta"}},
		{
			name:    "equality",
			filters: []filter.Filter{{Field: "city", Operator: "=", Value: "London"}},
			want:    []string{"Alpha", "Bravo", "Delta"},
		},
		{
			name: "inequality orders by field then name",
			filters: []filter.Filter{
				{Field: "maxAttendees", Operator: ">", Value: "5"},
				{Field: "city", Operator: "=", Value: "London"},
			},
			want: []string{"Bravo", "Delta"},
		},
		{
			name:    "topic",
			filters: []filter.Filter{{Field: "TOPIC", Operator: "EQ", Value: "Go"}},
			want:    []string{"Charlie"},
		},
		{
			name: "equality on several fields",
			filters: []filter.Filter{
				{Field: "city", Operator: "=", Value: "London"},
				{Field: "month", Operator: "=", Value: "6"},
			},
			want: []string{"Bravo", "Delta"},
		},
		{
			name: "two inequality fields",
			filters: []filter.Filter{
				{Field: "maxAttendees", Operator: ">", Value: "5"},
				{Field: "month", Operator: "<", Value: "7"},
			},
			wantErr: ErrBadRequest,
		},
		{name: "unknown field", filters: []filter.Filter{{Field: "name", Operator: "=", Value: "Alpha"}}, wantErr: ErrBadRequest},
		{name: "unknown operator", filters: []filter.Filter{{Field: "city", Operator: "~", Value: "London"}}, wantErr: ErrBadRequest},
		{name: "bad number", filters: []filter.Filter{{Field: "month", Operator: "=", Value: "June"}}, wantErr: ErrBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := s.QueryConferences(ctx, bob, &ConferenceQueryForms{Filters: test.filters})
			if test.wantErr != nil {
				assertKind(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, c := range got.Items {
				names = append(names, c.Name)
				assert.Equal(t, "Alice", c.OrganizerDisplayName)
			}
			assert.Equal(t, test.want, names)
		})
	}
}

func TestGetConferencesCreated(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	createConference(t, s, alice, ConferenceForm{Name: "b"})
	createConference(t, s, bob, ConferenceForm{Name: "c"})
	createConference(t, s, alice, ConferenceForm{Name: "a"})

	got, err := s.GetConferencesCreated(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "a", got.Items[0].Name)
	assert.Equal(t, "b", got.Items[1].Name)

	got, err = s.GetConferencesCreated(ctx, &gauth.User{ID: "carol"})
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestRegistration(t *testing.T) {
	s, q, store := newTestService(t)
	ctx := context.Background()

	c := createConference(t, s, alice, ConferenceForm{Name: "Two seats", MaxAttendees: int64Ptr(2)})
	full := createConference(t, s, alice, ConferenceForm{Name: "Full", MaxAttendees: int64Ptr(0)})
	missing := store.IDKey("Conference", 999999, model.ProfileKey(store, "alice")).Encode()

	tests := []struct {
		name      string
		user      *gauth.User
		key       string
		register  bool
		want      bool
		wantErr   error
		wantSeats int64
	}{
		{name: "register", user: bob, key: c.WebsafeKey, register: true, want: true, wantSeats: 1},
		{name: "register twice", user: bob, key: c.WebsafeKey, register: true, wantErr: ErrConflict, wantSeats: 1},
		{name: "unregister", user: bob, key: c.WebsafeKey, want: true, wantSeats: 2},
		{name: "unregister twice", user: bob, key: c.WebsafeKey, want: false, wantSeats: 2},
		{name: "register again", user: bob, key: c.WebsafeKey, register: true, want: true, wantSeats: 1},
		{name: "organizer registers", user: alice, key: c.WebsafeKey, register: true, want: true, wantSeats: 0},
		{name: "no seats", user: &gauth.User{ID: "carol"}, key: c.WebsafeKey, register: true, wantErr: ErrConflict, wantSeats: 0},
		{name: "missing", user: bob, key: missing, register: true, wantErr: ErrNotFound},
		{name: "malformed", user: bob, key: "garbage", register: true, wantErr: ErrBadRequest},
		{name: "unregister missing", user: bob, key: missing, wantErr: ErrNotFound},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var got *BooleanMessage
			var err error
			if test.register {
				got, err = s.RegisterForConference(ctx, test.user, test.key)
			} else {
				got, err = s.UnregisterFromConference(ctx, test.user, test.key)
			}
			if test.wantErr != nil {
				assertKind(t, err, test.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, test.want, got.Data)
			}
			if test.key != c.WebsafeKey {
				return
			}
			conf, err := s.GetConference(ctx, alice, c.WebsafeKey)
			require.NoError(t, err)
			assert.Equal(t, test.wantSeats, *conf.SeatsAvailable)
		})
	}

	_, err := s.RegisterForConference(ctx, bob, full.WebsafeKey)
	assertKind(t, err, ErrConflict)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "There are no seats available.", e.Msg)

	n := 0
	for _, name := range q.names() {
		if name == TaskSetAnnouncement {
			n++
		}
	}
	assert.Equal(t, 4, n, "each successful transition refreshes the announcement")

	got, err := s.GetConferencesToAttend(ctx, bob)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Two seats", got.Items[0].Name)
	assert.Equal(t, "Alice", got.Items[0].OrganizerDisplayName)

	p, err := s.GetProfile(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{c.WebsafeKey}, p.ConferenceKeysToAttend)
}

func TestConcurrentRegistration(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	c := createConference(t, s, alice, ConferenceForm{Name: "Last seat", MaxAttendees: int64Ptr(1)})

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := &gauth.User{ID: fmt.Sprintf("user%d", i)}
			_, errs[i] = s.RegisterForConference(ctx, user, c.WebsafeKey)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assertKind(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	conf, err := s.GetConference(ctx, alice, c.WebsafeKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *conf.SeatsAvailable)
}

func TestCreateSession(t *testing.T) {
	s, q, store := newTestService(t)
	ctx := context.Background()

	c := createConference(t, s, alice, ConferenceForm{Name: "Conf", StartDate: "2024-03-05"})
	ann := createSpeaker(t, s, "Ann")
	missingSpeaker := store.IDKey("Speaker", 999999, nil).Encode()
	missingConf := store.IDKey("Conference", 999999, model.ProfileKey(store, "alice")).Encode()

	tests := []struct {
		name      string
		user      *gauth.User
		form      SessionForm
		wantErr   error
		wantMonth int64
		wantType  string
		wantTime  string
		wantTasks []string
	}{
		{
			name:      "date sets month",
			user:      alice,
			form:      SessionForm{Name: "Intro", ParentKey: c.WebsafeKey, Date: "2024-06-01"},
			wantMonth: 6,
			wantType:  "GENERAL",
			wantTasks: []string{TaskSendEmail},
		},
		{
			name:      "month from conference",
			user:      alice,
			form:      SessionForm{Name: "Keynote", ParentKey: c.WebsafeKey, TypeOfSession: "KEYNOTE", StartTime: "09:30:00", SpeakerID: []string{ann}},
			wantMonth: 3,
			wantType:  "KEYNOTE",
			wantTime:  "09:30",
			wantTasks: []string{TaskSetFeaturedSpeaker, TaskSendEmail},
		},
		{name: "no name", user: alice, form: SessionForm{ParentKey: c.WebsafeKey}, wantErr: ErrBadRequest},
		{name: "no parent", user: alice, form: SessionForm{Name: "x"}, wantErr: ErrBadRequest},
		{name: "malformed parent", user: alice, form: SessionForm{Name: "x", ParentKey: "junk"}, wantErr: ErrBadRequest},
		{name: "missing parent", user: alice, form: SessionForm{Name: "x", ParentKey: missingConf}, wantErr: ErrNotFound},
		{name: "not organizer", user: bob, form: SessionForm{Name: "x", ParentKey: c.WebsafeKey}, wantErr: ErrForbidden},
		{name: "bad type", user: alice, form: SessionForm{Name: "x", ParentKey: c.WebsafeKey, TypeOfSession: "PARTY"}, wantErr: ErrBadRequest},
		{name: "malformed speaker", user: alice, form: SessionForm{Name: "x", ParentKey: c.WebsafeKey, SpeakerID: []string{"junk"}}, wantErr: ErrBadRequest},
		{name: "speaker key of wrong kind", user: alice, form: SessionForm{Name: "x", ParentKey: c.WebsafeKey, SpeakerID: []string{c.WebsafeKey}}, wantErr: ErrBadRequest},
		{name: "missing speaker", user: alice, form: SessionForm{Name: "x", ParentKey: c.WebsafeKey, SpeakerID: []string{missingSpeaker}}, wantErr: ErrNotFound},
		{name: "bad date", user: alice, form: SessionForm{Name: "x", ParentKey: c.WebsafeKey, Date: "tomorrow"}, wantErr: ErrBadRequest},
		{name: "bad time", user: alice, form: SessionForm{Name: "x", ParentKey: c.WebsafeKey, StartTime: "25:99"}, wantErr: ErrBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			before := len(q.names())
			got, err := s.CreateSession(ctx, test.user, &test.form)
			if test.wantErr != nil {
				assertKind(t, err, test.wantErr)
				assert.Len(t, q.names(), before)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantMonth, got.Month)
			assert.Equal(t, test.wantType, got.TypeOfSession)
			assert.Equal(t, test.wantTime, got.StartTime)
			assert.Equal(t, c.WebsafeKey, got.ParentKey)
			assert.Equal(t, test.wantTasks, q.names()[before:])
		})
	}
}

func TestSessionQueries(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	c1 := createConference(t, s, alice, ConferenceForm{Name: "One"})
	c2 := createConference(t, s, alice, ConferenceForm{Name: "Two"})
	annKey := createSpeaker(t, s, "Ann")
	bobKey := createSpeaker(t, s, "Bob")

	createSession(t, s, c1.WebsafeKey, "a", annKey)
	_, err := s.CreateSession(ctx, alice, &SessionForm{Name: "b", ParentKey: c1.WebsafeKey, TypeOfSession: "WORKSHOP", SpeakerID: []string{bobKey}})
	require.NoError(t, err)
	createSession(t, s, c2.WebsafeKey, "c", annKey, bobKey)

	names := func(f *SessionForms) []string {
		var names []string
		for _, s := range f.Items {
			names = append(names, s.Name)
		}
		return names
	}

	got, err := s.GetConferenceSessions(ctx, alice, c1.WebsafeKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(got))

	got, err = s.GetConferenceSessionsByType(ctx, alice, c1.WebsafeKey, "WORKSHOP")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(got))

	_, err = s.GetConferenceSessionsByType(ctx, alice, c1.WebsafeKey, "PARTY")
	assertKind(t, err, ErrBadRequest)

	got, err = s.GetSessionsBySpeaker(ctx, alice, annKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names(got))

	_, err = s.GetSessionsBySpeaker(ctx, alice, c1.WebsafeKey)
	assertKind(t, err, ErrBadRequest)

	_, err = s.GetConferenceSessions(ctx, alice, "junk")
	assertKind(t, err, ErrBadRequest)

	speakers, err := s.GetSpeakers(ctx, alice)
	require.NoError(t, err)
	require.Len(t, speakers.Items, 2)
	assert.Equal(t, "Ann", speakers.Items[0].Name)
	assert.Equal(t, "Bob", speakers.Items[1].Name)

	_, err = s.CreateSpeaker(ctx, alice, &SpeakerForm{})
	assertKind(t, err, ErrBadRequest)
}

func TestWishlist(t *testing.T) {
	s, _, store := newTestService(t)
	ctx := context.Background()

	c := createConference(t, s, alice, ConferenceForm{Name: "Conf", MaxAttendees: int64Ptr(10)})
	sess := createSession(t, s, c.WebsafeKey, "Talk")
	missing := store.IDKey("Session", 999999, nil).Encode()

	_, err := s.AddSessionToWishlist(ctx, bob, sess.WebsafeKey)
	assertKind(t, err, ErrConflict)

	_, err = s.RegisterForConference(ctx, bob, c.WebsafeKey)
	require.NoError(t, err)

	got, err := s.AddSessionToWishlist(ctx, bob, sess.WebsafeKey)
	require.NoError(t, err)
	assert.True(t, got.Data)

	_, err = s.AddSessionToWishlist(ctx, bob, sess.WebsafeKey)
	assertKind(t, err, ErrConflict)

	_, err = s.AddSessionToWishlist(ctx, bob, missing)
	assertKind(t, err, ErrNotFound)

	_, err = s.AddSessionToWishlist(ctx, bob, "junk")
	assertKind(t, err, ErrBadRequest)

	list, err := s.GetSessionWishlist(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Talk", list.Items[0].Name)

	got, err = s.RemoveSessionFromWishlist(ctx, bob, sess.WebsafeKey)
	require.NoError(t, err)
	assert.True(t, got.Data)

	got, err = s.RemoveSessionFromWishlist(ctx, bob, sess.WebsafeKey)
	require.NoError(t, err)
	assert.False(t, got.Data)

	list, err = s.GetSessionWishlist(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestSetAnnouncement(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	keys := make(map[string]string)
	for _, c := range []struct {
		name  string
		seats int64
	}{
		{"zero", 0},
		{"three", 3},
		{"five", 5},
		{"six", 6},
	} {
		f := createConference(t, s, alice, ConferenceForm{Name: c.name, MaxAttendees: int64Ptr(c.seats)})
		keys[c.name] = f.WebsafeKey
	}

	want := "Last chance to attend! The following conferences are nearly sold out: three, five"
	msg, err := s.SetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, msg)

	got, err := s.GetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got.Data)

	// Raising the seats of both conferences clears the published announcement.
	for _, name := range []string{"three", "five"} {
		_, err = s.UpdateConference(ctx, alice, keys[name], &ConferenceForm{MaxAttendees: int64Ptr(50)})
		require.NoError(t, err)
	}
	msg, err = s.SetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", msg)
	got, err = s.GetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got.Data)
}

func TestAnnouncementClearedWhenSoldOut(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	f := createConference(t, s, alice, ConferenceForm{Name: "Tiny", MaxAttendees: int64Ptr(1)})
	msg, err := s.SetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, announcementPrefix+"Tiny", msg)

	// Taking the last seat leaves nothing nearly sold out.
	res, err := s.RegisterForConference(ctx, bob, f.WebsafeKey)
	require.NoError(t, err)
	assert.True(t, res.Data)
	msg, err = s.SetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", msg)
	got, err := s.GetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got.Data)
}

func TestSetFeaturedSpeaker(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	c1 := createConference(t, s, alice, ConferenceForm{Name: "One"})
	c2 := createConference(t, s, alice, ConferenceForm{Name: "Two"})
	annKey := createSpeaker(t, s, "Ann")
	bobKey := createSpeaker(t, s, "Bob")

	createSession(t, s, c1.WebsafeKey, "s1", annKey)
	createSession(t, s, c2.WebsafeKey, "other", bobKey)
	s2 := createSession(t, s, c1.WebsafeKey, "s2", annKey, bobKey)
	tie := createSession(t, s, c2.WebsafeKey, "tie", bobKey, annKey)
	plain := createSession(t, s, c1.WebsafeKey, "plain")

	tests := []struct {
		name    string
		session string
		want    string
		wantErr error
	}{
		{name: "most sessions", session: s2.WebsafeKey, want: "Featured speaker: Ann. Sessions: s1, s2"},
		{name: "counts only the same conference", session: tie.WebsafeKey, want: "Featured speaker: Bob. Sessions: other, tie"},
		{name: "no speakers", session: plain.WebsafeKey, want: ""},
		{name: "malformed", session: "junk", wantErr: ErrBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := s.SetFeaturedSpeaker(ctx, test.session)
			if test.wantErr != nil {
				assertKind(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}

	// The slot keeps the last published speaker.
	got, err := s.GetFeaturedSpeaker(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Featured speaker: Bob. Sessions: other, tie", got.Data)
}

func TestFeaturedSpeakerTie(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	c := createConference(t, s, alice, ConferenceForm{Name: "Conf"})
	annKey := createSpeaker(t, s, "Ann")
	bobKey := createSpeaker(t, s, "Bob")
	sess := createSession(t, s, c.WebsafeKey, "duo", annKey, bobKey)

	got, err := s.SetFeaturedSpeaker(ctx, sess.WebsafeKey)
	require.NoError(t, err)
	assert.Equal(t, "Featured speaker: Bob. Sessions: duo", got)
}

// testMailer records sent emails.
type testMailer struct {
	mu   sync.Mutex
	sent map[string]string
}

func (m *testMailer) Send(ctx context.Context, id, recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[id] = recipient + ": " + subject
	return nil
}

func TestBackgroundTasks(t *testing.T) {
	datastore.GetCache("Speaker").Reset()
	store := datastore.NewMemStore()
	log := logging.New(logging.Debug, io.Discard, false)
	q, err := tasks.NewQueue(log, tasks.WithBackoff(0))
	require.NoError(t, err)
	mailer := &testMailer{sent: make(map[string]string)}
	s := New(store, q, model.NewSlotCache(store), mailer, log)
	s.RegisterTasks(q)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(runCtx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	ctx := context.Background()
	c := createConference(t, s, alice, ConferenceForm{Name: "Small", MaxAttendees: int64Ptr(6)})
	ann := createSpeaker(t, s, "Ann")
	createSession(t, s, c.WebsafeKey, "Talk", ann)
	_, err = s.RegisterForConference(ctx, bob, c.WebsafeKey)
	require.NoError(t, err)
	q.Wait()

	mailer.mu.Lock()
	var sent []string
	for _, v := range mailer.sent {
		sent = append(sent, v)
	}
	mailer.mu.Unlock()
	assert.ElementsMatch(t, []string{
		"alice@example.com: You created a new Conference!",
		"alice@example.com: You created a new Session!",
	}, sent)

	got, err := s.GetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Last chance to attend! The following conferences are nearly sold out: Small", got.Data)

	got, err = s.GetFeaturedSpeaker(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Featured speaker: Ann. Sessions: Talk", got.Data)
}
