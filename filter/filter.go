/*
DESCRIPTION
  Conference query filters.

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

// Package filter translates client-supplied conference filters into
// datastore queries.
//
// Filters are (field, operator, value) triples. Equality filters may
// be combined freely, but at most one field may carry an inequality
// operator, since the datastore requires a range query to be ordered
// by its inequality property first.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/confcentral/datastore"
)

// Errors. ErrMultipleInequality wraps ErrInvalidFilter.
var (
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrInvalidValue       = errors.New("invalid filter value")
	ErrMultipleInequality = fmt.Errorf("%w: inequality filter is allowed on only one field", ErrInvalidFilter)
)

// Filter is a single client-supplied filter.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// field describes a filterable conference property.
type field struct {
	property string
	numeric  bool
}

// fields maps field names to conference properties. The upper case
// names are accepted for compatibility with older clients.
var fields = map[string]field{
	"city":          {property: "City"},
	"topics":        {property: "Topics"},
	"month":         {property: "Month", numeric: true},
	"maxAttendees":  {property: "MaxAttendees", numeric: true},
	"CITY":          {property: "City"},
	"TOPIC":         {property: "Topics"},
	"MONTH":         {property: "Month", numeric: true},
	"MAX_ATTENDEES": {property: "MaxAttendees", numeric: true},
}

// operators maps operator names to datastore operators.
var operators = map[string]string{
	"=":    "=",
	">":    ">",
	">=":   ">=",
	"<":    "<",
	"<=":   "<=",
	"!=":   "!=",
	"EQ":   "=",
	"GT":   ">",
	"GTEQ": ">=",
	"LT":   "<",
	"LTEQ": "<=",
	"NE":   "!=",
}

// clause is a resolved filter.
type clause struct {
	property string
	op       string
	value    interface{}
}

// Plan is a validated set of filters, ready to be applied to a
// conference query.
type Plan struct {
	clauses    []clause
	inequality string // Inequality property, if any.
}

// Parse validates filters and resolves their names and values.
func Parse(filters []Filter) (*Plan, error) {
	p := &Plan{}
	for i, f := range filters {
		fld, ok := fields[f.Field]
		if !ok {
			return nil, fmt.Errorf("%w: filter %d has unknown field %q", ErrInvalidFilter, i, f.Field)
		}
		op, ok := operators[f.Operator]
		if !ok {
			return nil, fmt.Errorf("%w: filter %d has unknown operator %q", ErrInvalidFilter, i, f.Operator)
		}

		// Surrounding whitespace is never significant.
		var v interface{} = strings.TrimSpace(f.Value)
		if fld.numeric {
			n, err := strconv.ParseInt(v.(string), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s requires an integer, got %q", ErrInvalidValue, f.Field, f.Value)
			}
			v = n
		}

		if op != "=" {
			if p.inequality != "" && p.inequality != fld.property {
				return nil, ErrMultipleInequality
			}
			p.inequality = fld.property
		}
		p.clauses = append(p.clauses, clause{property: fld.property, op: op, value: v})
	}
	return p, nil
}

// Orders returns the query orders: the inequality property, if any,
// followed by the conference name.
func (p *Plan) Orders() []string {
	if p.inequality == "" {
		return []string{"Name"}
	}
	return []string{p.inequality, "Name"}
}

// Apply orders q and adds the filters in the order they were given.
func (p *Plan) Apply(q datastore.Query) error {
	for _, o := range p.Orders() {
		q.Order(o)
	}
	for _, c := range p.clauses {
		err := q.FilterField(c.property, c.op, c.value)
		if err != nil {
			return err
		}
	}
	return nil
}
