/*
LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License in gpl.txt.
  If not, see [GNU licenses](http://www.gnu.org/licenses).
*/

package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/model"
)

// recorder is a datastore.Query that records what is applied to it.
type recorder struct {
	orders  []string
	filters []string
}

func (r *recorder) Filter(filterStr string, value interface{}) error {
	r.filters = append(r.filters, filterStr)
	return nil
}

func (r *recorder) FilterField(fieldName, operator string, value interface{}) error {
	r.filters = append(r.filters, fieldName+" "+operator)
	return nil
}

func (r *recorder) Ancestor(*datastore.Key) {}
func (r *recorder) Order(fieldName string)  { r.orders = append(r.orders, fieldName) }
func (r *recorder) Limit(int)               {}
func (r *recorder) Offset(int)              {}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		filters     []Filter
		wantOrders  []string
		wantFilters []string
		wantErr     error
	}{
		{
			name:       "no filters",
			wantOrders: []string{"Name"},
		},
		{
			name:        "equality only",
			filters:     []Filter{{"city", "=", "London"}, {"topics", "EQ", "Go"}, {"month", "=", "6"}},
			wantOrders:  []string{"Name"},
			wantFilters: []string{"City =", "Topics =", "Month ="},
		},
		{
			name:        "one inequality",
			filters:     []Filter{{"city", "=", "London"}, {"maxAttendees", ">", "10"}},
			wantOrders:  []string{"MaxAttendees", "Name"},
			wantFilters: []string{"City =", "MaxAttendees >"},
		},
		{
			name:        "two inequalities on one field",
			filters:     []Filter{{"MONTH", "GT", "2"}, {"month", "LTEQ", "9"}},
			wantOrders:  []string{"Month", "Name"},
			wantFilters: []string{"Month >", "Month <="},
		},
		{
			name:        "not equal is an inequality",
			filters:     []Filter{{"CITY", "NE", "Paris"}},
			wantOrders:  []string{"City", "Name"},
			wantFilters: []string{"City !="},
		},
		{
			name:    "inequalities on two fields",
			filters: []Filter{{"month", ">", "2"}, {"maxAttendees", "<", "100"}},
			wantErr: ErrMultipleInequality,
		},
		{
			name:    "unknown field",
			filters: []Filter{{"venue", "=", "x"}},
			wantErr: ErrInvalidFilter,
		},
		{
			name:    "unknown operator",
			filters: []Filter{{"city", "~", "x"}},
			wantErr: ErrInvalidFilter,
		},
		{
			name:    "non-integer month",
			filters: []Filter{{"month", "=", "June"}},
			wantErr: ErrInvalidValue,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := Parse(test.filters)
			if test.wantErr != nil {
				assert.True(t, errors.Is(err, test.wantErr), "got error %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantOrders, p.Orders())

			var r recorder
			require.NoError(t, p.Apply(&r))
			assert.Equal(t, test.wantOrders, r.orders)
			assert.Equal(t, test.wantFilters, r.filters)
		})
	}

	// Multiple inequalities are also invalid filters.
	_, err := Parse([]Filter{{"month", ">", "2"}, {"city", "!=", "x"}})
	assert.True(t, errors.Is(err, ErrInvalidFilter))
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemStore()
	confs := []model.Conference{
		{Name: "Gophercon", City: "Denver", Topics: []string{"Go"}, Month: 7, MaxAttendees: 500},
		{Name: "Devfest", City: "London", Topics: []string{"Go", "Web"}, Month: 11, MaxAttendees: 50},
		{Name: "Aquacon", City: "London", Topics: []string{"Oceans"}, Month: 3, MaxAttendees: 50},
		{Name: "Bytes", City: "London", Topics: []string{"Go"}, Month: 6, MaxAttendees: 200},
	}
	for i := range confs {
		_, err := model.PutConference(ctx, store, model.NewConferenceKey(store, "organizer"), &confs[i])
		require.NoError(t, err)
	}

	tests := []struct {
		filters []Filter
		want    []string
	}{
		{
			want: []string{"Aquacon", "Bytes", "Devfest", "Gophercon"},
		},
		{
			filters: []Filter{{"city", "=", "London"}, {"topics", "=", "Go"}},
			want:    []string{"Bytes", "Devfest"},
		},
		{
			filters: []Filter{{"city", "=", "London"}, {"maxAttendees", ">=", "50"}},
			want:    []string{"Aquacon", "Devfest", "Bytes"},
		},
		{
			filters: []Filter{{"month", ">", "3"}, {"month", "<", "11"}},
			want:    []string{"Bytes", "Gophercon"},
		},
		{
			filters: []Filter{{"city", "=", " London "}, {"topics", "=", "Oceans\t"}, {"month", "=", " 3"}},
			want:    []string{"Aquacon"},
		},
	}

	for i, test := range tests {
		p, err := Parse(test.filters)
		require.NoError(t, err)
		q := model.NewConferenceQuery(store)
		require.NoError(t, p.Apply(q))
		got, _, err := model.GetConferencesByQuery(ctx, store, q)
		require.NoError(t, err)
		var names []string
		for _, c := range got {
			names = append(names, c.Name)
		}
		assert.Equal(t, test.want, names, "test %d", i)
	}
}
