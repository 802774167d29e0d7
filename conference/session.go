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
	"fmt"

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/gauth"
	"github.com/ausocean/confcentral/model"
	"github.com/ausocean/confcentral/tasks"
)

// CreateSession creates a session in a conference organized by the
// caller. When speakers are attached, the featured speaker is
// recomputed in the background.
func (s *Service) CreateSession(ctx context.Context, user *gauth.User, form *SessionForm) (*SessionForm, error) {
	p, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	err = form.Validate()
	if err != nil {
		return nil, err
	}
	confKey, err := conferenceKey(form.ParentKey)
	if err != nil {
		return nil, err
	}
	conf, err := model.GetConference(ctx, s.store, confKey)
	if err != nil {
		return nil, notFound(err, "conference", form.ParentKey)
	}
	if conf.OrganizerUserID != user.ID {
		return nil, newError(ErrForbidden, "Only the owner can add sessions to the conference.")
	}

	typ := model.SessionGeneral
	if form.TypeOfSession != "" {
		typ, err = model.ParseSessionType(form.TypeOfSession)
		if err != nil {
			return nil, newError(ErrBadRequest, "Invalid session type: %s", form.TypeOfSession)
		}
	}

	speakers := make([]string, 0, len(form.SpeakerID))
	for _, id := range form.SpeakerID {
		k, err := speakerKey(id)
		if err != nil {
			return nil, err
		}
		_, err = model.GetSpeaker(ctx, s.store, k)
		if err != nil {
			return nil, notFound(err, "speaker", id)
		}
		speakers = append(speakers, k.Encode())
	}

	date, err := parseDate("date", form.Date)
	if err != nil {
		return nil, err
	}
	startTime, err := parseTime("startTime", form.StartTime)
	if err != nil {
		return nil, err
	}

	sess := &model.Session{
		Name:          form.Name,
		Highlights:    form.Highlights,
		SpeakerID:     speakers,
		Duration:      form.Duration,
		TypeOfSession: typ.String(),
		Date:          date,
		Month:         conf.Month,
		StartTime:     startTime,
	}
	if !date.IsZero() {
		sess.Month = int64(date.Month())
	}
	key, err := model.PutSession(ctx, s.store, confKey, sess)
	if err != nil {
		return nil, fmt.Errorf("could not put session: %w", err)
	}
	f := sessionForm(sess, key)
	s.log.Info("created session", "key", f.WebsafeKey, "conference", f.ParentKey)

	if len(speakers) != 0 {
		s.enqueue(ctx, TaskSetFeaturedSpeaker, tasks.Params{"websafeSessionKey": f.WebsafeKey})
	}
	if p.MainEmail != "" {
		s.enqueue(ctx, TaskSendEmail, tasks.Params{
			"email":   p.MainEmail,
			"subject": "You created a new Session!",
			"body":    fmt.Sprintf("Hi, you have created the following session for %s:\n\n%s", conf.Name, f.summary()),
		})
	}
	return &f, nil
}

// GetConferenceSessions returns the sessions of a conference.
func (s *Service) GetConferenceSessions(ctx context.Context, user *gauth.User, websafeKey string) (*SessionForms, error) {
	key, err := s.existingConference(ctx, user, websafeKey)
	if err != nil {
		return nil, err
	}
	sessions, keys, err := model.GetSessionsByConference(ctx, s.store, key)
	if err != nil {
		return nil, fmt.Errorf("could not get sessions: %w", err)
	}
	return sessionForms(sessions, keys), nil
}

// GetConferenceSessionsByType returns the sessions of a conference
// with the given type.
func (s *Service) GetConferenceSessionsByType(ctx context.Context, user *gauth.User, websafeKey, typeOfSession string) (*SessionForms, error) {
	key, err := s.existingConference(ctx, user, websafeKey)
	if err != nil {
		return nil, err
	}
	typ, err := model.ParseSessionType(typeOfSession)
	if err != nil {
		return nil, newError(ErrBadRequest, "Invalid session type: %s", typeOfSession)
	}
	sessions, keys, err := model.GetSessionsByType(ctx, s.store, key, typ)
	if err != nil {
		return nil, fmt.Errorf("could not get sessions: %w", err)
	}
	return sessionForms(sessions, keys), nil
}

// GetSessionsBySpeaker returns the sessions given by a speaker across
// all conferences.
func (s *Service) GetSessionsBySpeaker(ctx context.Context, user *gauth.User, websafeSpeakerKey string) (*SessionForms, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	key, err := speakerKey(websafeSpeakerKey)
	if err != nil {
		return nil, err
	}
	_, err = model.GetSpeaker(ctx, s.store, key)
	if err != nil {
		return nil, notFound(err, "speaker", websafeSpeakerKey)
	}
	sessions, keys, err := model.GetSessionsBySpeaker(ctx, s.store, key.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not get sessions: %w", err)
	}
	return sessionForms(sessions, keys), nil
}

// existingConference authenticates the caller and returns the key of
// an existing conference.
func (s *Service) existingConference(ctx context.Context, user *gauth.User, websafeKey string) (*datastore.Key, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	key, err := conferenceKey(websafeKey)
	if err != nil {
		return nil, err
	}
	_, err = model.GetConference(ctx, s.store, key)
	if err != nil {
		return nil, notFound(err, "conference", websafeKey)
	}
	return key, nil
}

func sessionForms(sessions []model.Session, keys []*datastore.Key) *SessionForms {
	forms := &SessionForms{Items: make([]SessionForm, 0, len(sessions))}
	for i := range sessions {
		forms.Items = append(forms.Items, sessionForm(&sessions[i], keys[i]))
	}
	return forms
}
