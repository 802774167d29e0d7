/*
DESCRIPTION
  Enumerated types stored as strings.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean).

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  This is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY
  or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public
  License for more details.

  You should have received a copy of the GNU General Public License in
  gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTeeShirtSize = errors.New("invalid tee shirt size")
	ErrInvalidSessionType  = errors.New("invalid session type")
)

// TeeShirtSize is a profile's tee shirt size. The M and W suffixes
// denote men's and women's sizes.
type TeeShirtSize int

// Tee shirt sizes.
const (
	SizeNotSpecified TeeShirtSize = iota
	SizeXSM
	SizeXSW
	SizeSM
	SizeSW
	SizeMM
	SizeMW
	SizeLM
	SizeLW
	SizeXLM
	SizeXLW
	SizeXXLM
	SizeXXLW
	SizeXXXLM
	SizeXXXLW
)

var teeShirtSizeNames = [...]string{
	"NOT_SPECIFIED",
	"XS_M", "XS_W",
	"S_M", "S_W",
	"M_M", "M_W",
	"L_M", "L_W",
	"XL_M", "XL_W",
	"XXL_M", "XXL_W",
	"XXXL_M", "XXXL_W",
}

func (t TeeShirtSize) String() string {
	if t < 0 || int(t) >= len(teeShirtSizeNames) {
		return fmt.Sprintf("TeeShirtSize(%d)", int(t))
	}
	return teeShirtSizeNames[t]
}

// ParseTeeShirtSize returns the tee shirt size with the given name.
func ParseTeeShirtSize(s string) (TeeShirtSize, error) {
	for i, name := range teeShirtSizeNames {
		if s == name {
			return TeeShirtSize(i), nil
		}
	}
	return SizeNotSpecified, fmt.Errorf("%w: %q", ErrInvalidTeeShirtSize, s)
}

// SessionType is the type of a conference session.
type SessionType int

// Session types.
const (
	SessionGeneral SessionType = iota
	SessionWorkshop
	SessionTutorial
	SessionSeminar
	SessionForum
	SessionLecture
	SessionKeynote
)

var sessionTypeNames = [...]string{"GENERAL", "WORKSHOP", "TUTORIAL", "SEMINAR", "FORUM", "LECTURE", "KEYNOTE"}

func (t SessionType) String() string {
	if t < 0 || int(t) >= len(sessionTypeNames) {
		return fmt.Sprintf("SessionType(%d)", int(t))
	}
	return sessionTypeNames[t]
}

// ParseSessionType returns the session type with the given name.
func ParseSessionType(s string) (SessionType, error) {
	for i, name := range sessionTypeNames {
		if s == name {
			return SessionType(i), nil
		}
	}
	return SessionGeneral, fmt.Errorf("%w: %q", ErrInvalidSessionType, s)
}
