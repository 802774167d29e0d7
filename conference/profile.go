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

	"github.com/ausocean/confcentral/gauth"
	"github.com/ausocean/confcentral/model"
)

// GetProfile returns the caller's profile, creating it on first access.
func (s *Service) GetProfile(ctx context.Context, user *gauth.User) (*ProfileForm, error) {
	p, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	return profileForm(p), nil
}

// SaveProfile updates the non-empty fields of the caller's profile.
func (s *Service) SaveProfile(ctx context.Context, user *gauth.User, form *ProfileMiniForm) (*ProfileForm, error) {
	_, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	err = form.Validate()
	if err != nil {
		return nil, newError(ErrBadRequest, "%v", err)
	}

	p, err := s.updateProfile(ctx, user.ID, func(p *model.Profile) (bool, error) {
		if form.DisplayName != "" {
			p.DisplayName = form.DisplayName
		}
		if form.TeeShirtSize != "" {
			p.TeeShirtSize = form.TeeShirtSize
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return profileForm(p), nil
}
