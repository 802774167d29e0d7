/*
DESCRIPTION
  Conference Central request handling.

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

// Package conference implements the Conference Central operations:
// profiles, conferences, sessions, speakers, registration, wishlists
// and the two derived announcements. Operations take the resolved
// identity of the caller and return wire forms. Errors wrap one of
// the error kinds ErrUnauthorized, ErrBadRequest, ErrNotFound,
// ErrForbidden or ErrConflict, or are internal errors.
package conference

import (
	"context"
	"errors"
	"fmt"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/gauth"
	"github.com/ausocean/confcentral/model"
	"github.com/ausocean/confcentral/tasks"
)

// Task names.
const (
	TaskSendEmail          = "send_confirmation_email"
	TaskSetFeaturedSpeaker = "set_featured_speaker"
	TaskSetAnnouncement    = "set_announcement"
)

// Cache is a single-slot cache, holding one value per name.
type Cache interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}

// Queue accepts background tasks.
type Queue interface {
	Add(ctx context.Context, name string, params tasks.Params) (string, error)
}

// TaskRegistry registers background task handlers.
type TaskRegistry interface {
	Handle(name string, h tasks.Handler)
}

// Mailer sends an email. Sends with the same id may be suppressed.
type Mailer interface {
	Send(ctx context.Context, id, recipient, subject, body string) error
}

// Service implements the Conference Central operations.
type Service struct {
	store  datastore.Store
	queue  Queue
	cache  Cache
	mailer Mailer
	log    logging.Logger
}

// New returns a new Service. The mailer may be nil, in which case no
// email is sent.
func New(store datastore.Store, queue Queue, cache Cache, mailer Mailer, log logging.Logger) *Service {
	return &Service{store: store, queue: queue, cache: cache, mailer: mailer, log: log}
}

// RegisterTasks registers the service's background task handlers.
func (s *Service) RegisterTasks(r TaskRegistry) {
	r.Handle(TaskSendEmail, s.sendEmailTask)
	r.Handle(TaskSetFeaturedSpeaker, s.setFeaturedSpeakerTask)
	r.Handle(TaskSetAnnouncement, s.setAnnouncementTask)
}

// enqueue adds a background task. Failure is logged and otherwise ignored.
func (s *Service) enqueue(ctx context.Context, name string, params tasks.Params) {
	_, err := s.queue.Add(ctx, name, params)
	if err != nil {
		s.log.Warning("could not add task", "name", name, "error", err)
	}
}

// profile returns the caller's profile, creating it if necessary.
func (s *Service) profile(ctx context.Context, user *gauth.User) (*model.Profile, error) {
	if user == nil || user.ID == "" {
		return nil, errAuthRequired
	}
	p, err := model.GetOrCreateProfile(ctx, s.store, user.ID, user.Nickname(), user.Email)
	if err != nil {
		return nil, fmt.Errorf("could not get profile for %s: %w", user.ID, err)
	}
	return p, nil
}

// conferenceKey decodes a websafe conference key.
func conferenceKey(websafe string) (*datastore.Key, error) {
	k, err := model.DecodeConferenceKey(websafe)
	if err != nil {
		return nil, newError(ErrBadRequest, "Invalid conference key: %s", websafe)
	}
	return k, nil
}

// sessionKey decodes a websafe session key.
func sessionKey(websafe string) (*datastore.Key, error) {
	k, err := model.DecodeSessionKey(websafe)
	if err != nil {
		return nil, newError(ErrBadRequest, "Invalid session key: %s", websafe)
	}
	return k, nil
}

// speakerKey decodes a websafe speaker key.
func speakerKey(websafe string) (*datastore.Key, error) {
	k, err := model.DecodeSpeakerKey(websafe)
	if err != nil {
		return nil, newError(ErrBadRequest, "Invalid speaker key: %s", websafe)
	}
	return k, nil
}

// notFound converts datastore.ErrNoSuchEntity into a NotFound error.
func notFound(err error, what, websafe string) error {
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return newError(ErrNotFound, "No %s found with key: %s", what, websafe)
	}
	return err
}
