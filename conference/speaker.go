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

	"github.com/ausocean/confcentral/gauth"
	"github.com/ausocean/confcentral/model"
)

// CreateSpeaker creates a speaker.
func (s *Service) CreateSpeaker(ctx context.Context, user *gauth.User, form *SpeakerForm) (*SpeakerForm, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	err = form.Validate()
	if err != nil {
		return nil, err
	}
	sp := &model.Speaker{
		Name:     form.Name,
		Bio:      form.Bio,
		Company:  form.Company,
		Projects: form.Projects,
	}
	key, err := model.PutSpeaker(ctx, s.store, sp)
	if err != nil {
		return nil, fmt.Errorf("could not put speaker: %w", err)
	}
	f := speakerForm(sp, key)
	return &f, nil
}

// GetSpeakers returns all speakers, ordered by name.
func (s *Service) GetSpeakers(ctx context.Context, user *gauth.User) (*SpeakerForms, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	speakers, keys, err := model.GetSpeakers(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("could not get speakers: %w", err)
	}
	forms := &SpeakerForms{Items: make([]SpeakerForm, 0, len(speakers))}
	for i := range speakers {
		forms.Items = append(forms.Items, speakerForm(&speakers[i], keys[i]))
	}
	return forms, nil
}
