/*
DESCRIPTION
  Wire forms and their conversion to and from entities.

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
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/filter"
	"github.com/ausocean/confcentral/model"
)

// Wire formats. Only the leading characters of an inbound date or
// time are significant, so "2024-06-01T09:00:00" is a valid date.
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}`)
)

// ProfileForm is the wire form of a profile.
type ProfileForm struct {
	DisplayName            string   `json:"displayName"`
	MainEmail              string   `json:"mainEmail"`
	TeeShirtSize           string   `json:"teeShirtSize"`
	ConferenceKeysToAttend []string `json:"conferenceKeysToAttend"`
	SessionWishList        []string `json:"sessionWishList"`
}

// ProfileMiniForm holds the user-editable profile fields.
type ProfileMiniForm struct {
	DisplayName  string `json:"displayName"`
	TeeShirtSize string `json:"teeShirtSize"`
}

func (f *ProfileMiniForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.DisplayName, validation.Length(0, 100)),
		validation.Field(&f.TeeShirtSize, validation.By(func(v interface{}) error {
			s, _ := v.(string)
			if s == "" {
				return nil
			}
			_, err := model.ParseTeeShirtSize(s)
			return err
		})),
	)
}

// ConferenceForm is the wire form of a conference. The numeric fields
// are pointers so that updates can tell an absent field from zero.
type ConferenceForm struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description,omitempty"`
	OrganizerUserID      string   `json:"organizerUserId,omitempty"`
	Topics               []string `json:"topics,omitempty"`
	City                 string   `json:"city,omitempty"`
	StartDate            string   `json:"startDate,omitempty"`
	Month                *int64   `json:"month,omitempty"`
	MaxAttendees         *int64   `json:"maxAttendees,omitempty"`
	SeatsAvailable       *int64   `json:"seatsAvailable,omitempty"`
	EndDate              string   `json:"endDate,omitempty"`
	WebsafeKey           string   `json:"websafeKey,omitempty"`
	OrganizerDisplayName string   `json:"organizerDisplayName,omitempty"`
}

// validateCreate validates a conference form for creation.
func (f *ConferenceForm) validateCreate() error {
	if f.Name == "" {
		return newError(ErrBadRequest, "Conference 'name' field required")
	}
	return f.validate()
}

// validate validates the fields that are present.
func (f *ConferenceForm) validate() error {
	err := validation.ValidateStruct(f,
		validation.Field(&f.StartDate, validation.Match(datePattern)),
		validation.Field(&f.EndDate, validation.Match(datePattern)),
		validation.Field(&f.MaxAttendees, validation.Min(int64(0))),
	)
	if err != nil {
		return newError(ErrBadRequest, "%v", err)
	}
	return nil
}

// ConferenceForms holds a list of conferences.
type ConferenceForms struct {
	Items []ConferenceForm `json:"items"`
}

// ConferenceQueryForms holds the filters of a conference query.
type ConferenceQueryForms struct {
	Filters []filter.Filter `json:"filters"`
}

// SessionForm is the wire form of a session.
type SessionForm struct {
	Name          string   `json:"name"`
	Highlights    string   `json:"highlights,omitempty"`
	SpeakerID     []string `json:"speakerID,omitempty"`
	Duration      int64    `json:"duration"`
	TypeOfSession string   `json:"typeOfSession,omitempty"`
	Date          string   `json:"date,omitempty"`
	Month         int64    `json:"month,omitempty"`
	StartTime     string   `json:"startTime,omitempty"`
	ParentKey     string   `json:"parentKey"`
	WebsafeKey    string   `json:"websafeKey,omitempty"`
}

func (f *SessionForm) Validate() error {
	if f.Name == "" {
		return newError(ErrBadRequest, "Session 'name' field required")
	}
	if f.ParentKey == "" {
		return newError(ErrBadRequest, "Session 'parentKey' field required")
	}
	err := validation.ValidateStruct(f,
		validation.Field(&f.Duration, validation.Min(int64(0))),
		validation.Field(&f.Date, validation.Match(datePattern)),
		validation.Field(&f.StartTime, validation.Match(timePattern)),
	)
	if err != nil {
		return newError(ErrBadRequest, "%v", err)
	}
	return nil
}

// SessionForms holds a list of sessions.
type SessionForms struct {
	Items []SessionForm `json:"items"`
}

// SpeakerForm is the wire form of a speaker.
type SpeakerForm struct {
	Name       string   `json:"name"`
	Bio        string   `json:"bio,omitempty"`
	Company    []string `json:"company,omitempty"`
	Projects   []string `json:"projects,omitempty"`
	WebsafeKey string   `json:"websafeKey,omitempty"`
}

func (f *SpeakerForm) Validate() error {
	if f.Name == "" {
		return newError(ErrBadRequest, "Speaker 'name' field required")
	}
	return nil
}

// SpeakerForms holds a list of speakers.
type SpeakerForms struct {
	Items []SpeakerForm `json:"items"`
}

// BooleanMessage is a boolean result.
type BooleanMessage struct {
	Data bool `json:"data"`
}

// StringMessage is a string result.
type StringMessage struct {
	Data string `json:"data"`
}

// parseDate parses the date at the start of s. An empty string is the zero time.
func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if len(s) < len(dateLayout) {
		return time.Time{}, newError(ErrBadRequest, "invalid %s: %q", field, s)
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return time.Time{}, newError(ErrBadRequest, "invalid %s: %q", field, s)
	}
	return t, nil
}

// parseTime normalizes the time of day at the start of s.
func parseTime(field, s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if len(s) < len(timeLayout) {
		return "", newError(ErrBadRequest, "invalid %s: %q", field, s)
	}
	t, err := time.Parse(timeLayout, s[:len(timeLayout)])
	if err != nil {
		return "", newError(ErrBadRequest, "invalid %s: %q", field, s)
	}
	return t.Format(timeLayout), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func int64Ptr(n int64) *int64 {
	return &n
}

func profileForm(p *model.Profile) *ProfileForm {
	return &ProfileForm{
		DisplayName:            p.DisplayName,
		MainEmail:              p.MainEmail,
		TeeShirtSize:           p.TeeShirtSize,
		ConferenceKeysToAttend: p.ConferenceKeysToAttend,
		SessionWishList:        p.SessionWishList,
	}
}

func conferenceForm(c *model.Conference, key *datastore.Key, displayName string) ConferenceForm {
	return ConferenceForm{
		Name:                 c.Name,
		Description:          c.Description,
		OrganizerUserID:      c.OrganizerUserID,
		Topics:               c.Topics,
		City:                 c.City,
		StartDate:            formatDate(c.StartDate),
		Month:                int64Ptr(c.Month),
		MaxAttendees:         int64Ptr(c.MaxAttendees),
		SeatsAvailable:       int64Ptr(c.SeatsAvailable),
		EndDate:              formatDate(c.EndDate),
		WebsafeKey:           key.Encode(),
		OrganizerDisplayName: displayName,
	}
}

func sessionForm(s *model.Session, key *datastore.Key) SessionForm {
	return SessionForm{
		Name:          s.Name,
		Highlights:    s.Highlights,
		SpeakerID:     s.SpeakerID,
		Duration:      s.Duration,
		TypeOfSession: s.TypeOfSession,
		Date:          formatDate(s.Date),
		Month:         s.Month,
		StartTime:     s.StartTime,
		ParentKey:     s.ParentKey,
		WebsafeKey:    key.Encode(),
	}
}

func speakerForm(sp *model.Speaker, key *datastore.Key) SpeakerForm {
	return SpeakerForm{
		Name:       sp.Name,
		Bio:        sp.Bio,
		Company:    sp.Company,
		Projects:   sp.Projects,
		WebsafeKey: key.Encode(),
	}
}

// summary returns a plain text description of a conference, for email.
func (f *ConferenceForm) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", f.Name)
	if f.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", f.Description)
	}
	fmt.Fprintf(&b, "City: %s\n", f.City)
	fmt.Fprintf(&b, "Topics: %s\n", strings.Join(f.Topics, ", "))
	if f.StartDate != "" {
		fmt.Fprintf(&b, "Dates: %s to %s\n", f.StartDate, f.EndDate)
	}
	if f.MaxAttendees != nil {
		fmt.Fprintf(&b, "Maximum attendees: %d\n", *f.MaxAttendees)
	}
	return b.String()
}

// summary returns a plain text description of a session, for email.
func (f *SessionForm) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", f.Name)
	fmt.Fprintf(&b, "Type: %s\n", f.TypeOfSession)
	if f.Date != "" {
		fmt.Fprintf(&b, "Date: %s %s\n", f.Date, f.StartTime)
	}
	fmt.Fprintf(&b, "Duration: %d minutes\n", f.Duration)
	return b.String()
}
