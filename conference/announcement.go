/*
DESCRIPTION
  Derived announcements and background task handlers.

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
	"strings"

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/model"
	"github.com/ausocean/confcentral/tasks"
)

const announcementPrefix = "Last chance to attend! The following conferences are nearly sold out: "

// GetAnnouncement returns the current sold-out announcement, if any.
func (s *Service) GetAnnouncement(ctx context.Context) (*StringMessage, error) {
	v, err := s.cache.Get(ctx, model.SlotAnnouncement)
	if err != nil {
		return nil, fmt.Errorf("could not get announcement: %w", err)
	}
	return &StringMessage{Data: v}, nil
}

// GetFeaturedSpeaker returns the current featured speaker announcement, if any.
func (s *Service) GetFeaturedSpeaker(ctx context.Context) (*StringMessage, error) {
	v, err := s.cache.Get(ctx, model.SlotFeaturedSpeaker)
	if err != nil {
		return nil, fmt.Errorf("could not get featured speaker: %w", err)
	}
	return &StringMessage{Data: v}, nil
}

// SetAnnouncement recomputes the sold-out announcement from the
// conferences that are nearly sold out, clearing it if there are
// none. It returns the announcement.
func (s *Service) SetAnnouncement(ctx context.Context) (string, error) {
	confs, err := model.GetNearlySoldOutConferences(ctx, s.store)
	if err != nil {
		return "", fmt.Errorf("could not get nearly sold out conferences: %w", err)
	}
	if len(confs) == 0 {
		return "", s.cache.Delete(ctx, model.SlotAnnouncement)
	}

	names := make([]string, len(confs))
	for i := range confs {
		names[i] = confs[i].Name
	}
	msg := announcementPrefix + strings.Join(names, ", ")
	return msg, s.cache.Set(ctx, model.SlotAnnouncement, msg)
}

// SetFeaturedSpeaker picks the featured speaker among the speakers of
// a session: the one with the most sessions in the session's
// conference, with ties going to the speaker listed last. It returns
// the announcement, or the empty string if the session has no speakers.
func (s *Service) SetFeaturedSpeaker(ctx context.Context, websafeSessionKey string) (string, error) {
	key, err := sessionKey(websafeSessionKey)
	if err != nil {
		return "", err
	}
	sess, err := model.GetSession(ctx, s.store, key)
	if err != nil {
		return "", notFound(err, "session", websafeSessionKey)
	}

	var featured string
	var sessions []model.Session
	for _, id := range sess.SpeakerID {
		ss, _, err := model.GetSessionsBySpeaker(ctx, s.store, id, key.Parent)
		if err != nil {
			return "", fmt.Errorf("could not get sessions for speaker %s: %w", id, err)
		}
		if len(ss) >= len(sessions) {
			featured = id
			sessions = ss
		}
	}
	if featured == "" {
		return "", nil
	}

	name := featured
	spKey, err := model.DecodeSpeakerKey(featured)
	if err == nil {
		var sp *model.Speaker
		sp, err = model.GetSpeaker(ctx, s.store, spKey)
		if err == nil {
			name = sp.Name
		}
	}
	if err != nil && !errors.Is(err, datastore.ErrNoSuchEntity) && !errors.Is(err, datastore.ErrInvalidKey) {
		return "", fmt.Errorf("could not get speaker %s: %w", featured, err)
	}

	names := make([]string, len(sessions))
	for i := range sessions {
		names[i] = sessions[i].Name
	}
	msg := fmt.Sprintf("Featured speaker: %s. Sessions: %s", name, strings.Join(names, ", "))
	return msg, s.cache.Set(ctx, model.SlotFeaturedSpeaker, msg)
}

func (s *Service) setAnnouncementTask(ctx context.Context, t *tasks.Task) error {
	msg, err := s.SetAnnouncement(ctx)
	if err != nil {
		return err
	}
	s.log.Debug("set announcement", "task", t.ID, "announcement", msg)
	return nil
}

func (s *Service) setFeaturedSpeakerTask(ctx context.Context, t *tasks.Task) error {
	msg, err := s.SetFeaturedSpeaker(ctx, t.Params["websafeSessionKey"])
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrNotFound) {
		// Retrying will not help.
		s.log.Warning("could not set featured speaker", "task", t.ID, "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Debug("set featured speaker", "task", t.ID, "announcement", msg)
	return nil
}

// sendEmailTask sends an email. The task ID identifies the email, so
// a retried task is not delivered twice.
func (s *Service) sendEmailTask(ctx context.Context, t *tasks.Task) error {
	if s.mailer == nil {
		s.log.Debug("no mailer, email not sent", "task", t.ID, "recipient", t.Params["email"])
		return nil
	}
	return s.mailer.Send(ctx, t.ID, t.Params["email"], t.Params["subject"], t.Params["body"])
}
