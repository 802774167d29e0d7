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

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/filter"
	"github.com/ausocean/confcentral/gauth"
	"github.com/ausocean/confcentral/model"
	"github.com/ausocean/confcentral/tasks"
)

// CreateConference creates a conference organized by the caller and
// emails the caller a confirmation.
func (s *Service) CreateConference(ctx context.Context, user *gauth.User, form *ConferenceForm) (*ConferenceForm, error) {
	p, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	err = form.validateCreate()
	if err != nil {
		return nil, err
	}
	start, err := parseDate("startDate", form.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("endDate", form.EndDate)
	if err != nil {
		return nil, err
	}

	c := &model.Conference{
		Name:            form.Name,
		Description:     form.Description,
		OrganizerUserID: user.ID,
		Topics:          form.Topics,
		City:            form.City,
		StartDate:       start,
		EndDate:         end,
	}
	if c.City == "" {
		c.City = model.DefaultCity
	}
	if len(c.Topics) == 0 {
		c.Topics = model.DefaultTopics()
	}
	if !start.IsZero() {
		c.Month = int64(start.Month())
	}
	if form.MaxAttendees != nil {
		c.MaxAttendees = *form.MaxAttendees
	}
	c.SeatsAvailable = c.MaxAttendees

	key, err := model.PutConference(ctx, s.store, model.NewConferenceKey(s.store, user.ID), c)
	if err != nil {
		return nil, fmt.Errorf("could not put conference: %w", err)
	}
	f := conferenceForm(c, key, p.DisplayName)
	s.log.Info("created conference", "key", f.WebsafeKey, "organizer", user.ID)

	if p.MainEmail != "" {
		s.enqueue(ctx, TaskSendEmail, tasks.Params{
			"email":   p.MainEmail,
			"subject": "You created a new Conference!",
			"body":    "Hi, you have created the following conference:\n\n" + f.summary(),
		})
	}
	return &f, nil
}

// UpdateConference updates the non-empty fields of a conference
// organized by the caller. Changing maxAttendees shifts seatsAvailable
// by the same amount, so registrations are preserved.
func (s *Service) UpdateConference(ctx context.Context, user *gauth.User, websafeKey string, form *ConferenceForm) (*ConferenceForm, error) {
	p, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	key, err := conferenceKey(websafeKey)
	if err != nil {
		return nil, err
	}
	err = form.validate()
	if err != nil {
		return nil, err
	}
	start, err := parseDate("startDate", form.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("endDate", form.EndDate)
	if err != nil {
		return nil, err
	}

	var c model.Conference
	err = s.store.RunInTransaction(ctx, func(tx datastore.Transaction) error {
		err := tx.Get(key, &c)
		if err != nil {
			return notFound(err, "conference", websafeKey)
		}
		if c.OrganizerUserID != user.ID {
			return newError(ErrForbidden, "Only the owner can update the conference.")
		}

		if form.Name != "" {
			c.Name = form.Name
		}
		if form.Description != "" {
			c.Description = form.Description
		}
		if len(form.Topics) != 0 {
			c.Topics = form.Topics
		}
		if form.City != "" {
			c.City = form.City
		}
		if !start.IsZero() {
			c.StartDate = start
			c.Month = int64(start.Month())
		}
		if !end.IsZero() {
			c.EndDate = end
		}
		if form.MaxAttendees != nil && *form.MaxAttendees != c.MaxAttendees {
			registered := c.MaxAttendees - c.SeatsAvailable
			if *form.MaxAttendees < registered {
				return newError(ErrConflict, "maxAttendees cannot be less than the %d registered attendees", registered)
			}
			c.MaxAttendees = *form.MaxAttendees
			c.SeatsAvailable = c.MaxAttendees - registered
		}
		return tx.Put(key, &c)
	})
	if err != nil {
		return nil, err
	}
	f := conferenceForm(&c, key, p.DisplayName)
	return &f, nil
}

// GetConference returns a conference.
func (s *Service) GetConference(ctx context.Context, user *gauth.User, websafeKey string) (*ConferenceForm, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	key, err := conferenceKey(websafeKey)
	if err != nil {
		return nil, err
	}
	c, err := model.GetConference(ctx, s.store, key)
	if err != nil {
		return nil, notFound(err, "conference", websafeKey)
	}
	name, err := s.displayName(ctx, c.OrganizerUserID)
	if err != nil {
		return nil, err
	}
	f := conferenceForm(c, key, name)
	return &f, nil
}

// QueryConferences returns the conferences matching the given filters.
func (s *Service) QueryConferences(ctx context.Context, user *gauth.User, form *ConferenceQueryForms) (*ConferenceForms, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	plan, err := filter.Parse(form.Filters)
	if err != nil {
		return nil, newError(ErrBadRequest, "%v", err)
	}
	q := model.NewConferenceQuery(s.store)
	err = plan.Apply(q)
	if err != nil {
		return nil, newError(ErrBadRequest, "%v", err)
	}
	confs, keys, err := model.GetConferencesByQuery(ctx, s.store, q)
	if err != nil {
		return nil, fmt.Errorf("could not query conferences: %w", err)
	}
	return s.conferenceForms(ctx, confs, keys)
}

// GetConferencesCreated returns the conferences organized by the
// caller, ordered by name.
func (s *Service) GetConferencesCreated(ctx context.Context, user *gauth.User) (*ConferenceForms, error) {
	p, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	confs, keys, err := model.GetConferencesByOrganizer(ctx, s.store, user.ID)
	if err != nil {
		return nil, fmt.Errorf("could not get conferences for %s: %w", user.ID, err)
	}
	forms := &ConferenceForms{Items: make([]ConferenceForm, 0, len(confs))}
	for i := range confs {
		forms.Items = append(forms.Items, conferenceForm(&confs[i], keys[i], p.DisplayName))
	}
	return forms, nil
}

// conferenceForms returns the forms of the given conferences, filling
// in organizer display names.
func (s *Service) conferenceForms(ctx context.Context, confs []model.Conference, keys []*datastore.Key) (*ConferenceForms, error) {
	names := make(map[string]string)
	forms := &ConferenceForms{Items: make([]ConferenceForm, 0, len(confs))}
	for i := range confs {
		id := confs[i].OrganizerUserID
		name, ok := names[id]
		if !ok {
			var err error
			name, err = s.displayName(ctx, id)
			if err != nil {
				return nil, err
			}
			names[id] = name
		}
		forms.Items = append(forms.Items, conferenceForm(&confs[i], keys[i], name))
	}
	return forms, nil
}

// displayName returns the display name of a user, or the empty string
// if the user has no profile.
func (s *Service) displayName(ctx context.Context, userID string) (string, error) {
	p, err := model.GetProfile(ctx, s.store, userID)
	switch {
	case err == nil:
		return p.DisplayName, nil
	case errors.Is(err, datastore.ErrNoSuchEntity):
		return "", nil
	default:
		return "", fmt.Errorf("could not get profile for %s: %w", userID, err)
	}
}
