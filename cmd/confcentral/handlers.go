/*
DESCRIPTION
  HTTP routing for Conference Central.

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

package main

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ausocean/confcentral/conference"
	"github.com/ausocean/confcentral/gauth"
)

// apiBase is the base path of the API.
const apiBase = "/_ah/api/conference/v1"

// userKey is the fiber locals key of the resolved user.
const userKey = "user"

// newApp returns the fiber app serving the API.
func (svc *service) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "confcentral " + version,
		ErrorHandler: svc.errorHandler,
	})
	app.Use(recover.New())
	if svc.debug {
		app.Use(logger.New())
	}

	api := app.Group(apiBase, svc.identify)

	// Derived reads.
	api.Get("/conference/announcement/get", svc.getAnnouncement)
	api.Get("/featuredspeaker/get", svc.getFeaturedSpeaker)

	api.Get("/profile", svc.getProfile)
	api.Post("/profile", svc.saveProfile)

	api.Post("/conference", svc.createConference)
	api.Put("/conference/:websafeConferenceKey", svc.updateConference)
	api.Get("/conference/:websafeConferenceKey", svc.getConference)
	api.Post("/queryConferences", svc.queryConferences)
	api.Post("/getConferencesCreated", svc.getConferencesCreated)
	api.Get("/conferences/attending", svc.getConferencesToAttend)
	api.Post("/conference/:websafeConferenceKey/registration", svc.registerForConference)
	api.Delete("/conference/:websafeConferenceKey/registration", svc.unregisterFromConference)

	api.Post("/session", svc.createSession)
	api.Get("/conference/:websafeConferenceKey/sessions", svc.getConferenceSessions)
	api.Get("/conference/:websafeConferenceKey/sessions/:typeOfSession", svc.getConferenceSessionsByType)
	api.Get("/speaker/:websafeSpeakerKey/sessions", svc.getSessionsBySpeaker)

	api.Post("/speaker", svc.createSpeaker)
	api.Get("/speakers", svc.getSpeakers)

	api.Get("/wishlist", svc.getSessionWishlist)
	api.Post("/wishlist/:websafeSessionKey", svc.addSessionToWishlist)
	api.Delete("/wishlist/:websafeSessionKey", svc.removeSessionFromWishlist)

	return app
}

// identify resolves the caller's identity from the Authorization
// header, if any. Requests without a valid credential proceed without
// a user and fail in operations that need one.
func (svc *service) identify(c *fiber.Ctx) error {
	cred := c.Get(fiber.HeaderAuthorization)
	if cred == "" {
		return c.Next()
	}
	u, err := svc.resolver.Resolve(c.UserContext(), cred)
	if err != nil {
		svc.log.Debug("could not resolve identity", "path", c.Path(), "error", err)
		return c.Next()
	}
	c.Locals(userKey, u)
	return c.Next()
}

// user returns the caller, or nil.
func user(c *fiber.Ctx) *gauth.User {
	u, _ := c.Locals(userKey).(*gauth.User)
	return u
}

// parseBody parses a JSON request body into v.
func parseBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	err := c.BodyParser(v)
	if err != nil {
		return &conference.Error{Kind: conference.ErrBadRequest, Msg: "Invalid request body"}
	}
	return nil
}

// reply writes v as JSON, or returns err.
func reply(c *fiber.Ctx, v interface{}, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(v)
}

func (svc *service) getAnnouncement(c *fiber.Ctx) error {
	v, err := svc.conf.GetAnnouncement(c.UserContext())
	return reply(c, v, err)
}

func (svc *service) getFeaturedSpeaker(c *fiber.Ctx) error {
	v, err := svc.conf.GetFeaturedSpeaker(c.UserContext())
	return reply(c, v, err)
}

func (svc *service) getProfile(c *fiber.Ctx) error {
	v, err := svc.conf.GetProfile(c.UserContext(), user(c))
	return reply(c, v, err)
}

func (svc *service) saveProfile(c *fiber.Ctx) error {
	var form conference.ProfileMiniForm
	err := parseBody(c, &form)
	if err != nil {
		return err
	}
	v, err := svc.conf.SaveProfile(c.UserContext(), user(c), &form)
	return reply(c, v, err)
}

func (svc *service) createConference(c *fiber.Ctx) error {
	var form conference.ConferenceForm
	err := parseBody(c, &form)
	if err != nil {
		return err
	}
	v, err := svc.conf.CreateConference(c.UserContext(), user(c), &form)
	return reply(c, v, err)
}

func (svc *service) updateConference(c *fiber.Ctx) error {
	var form conference.ConferenceForm
	err := parseBody(c, &form)
	if err != nil {
		return err
	}
	v, err := svc.conf.UpdateConference(c.UserContext(), user(c), c.Params("websafeConferenceKey"), &form)
	return reply(c, v, err)
}

func (svc *service) getConference(c *fiber.Ctx) error {
	v, err := svc.conf.GetConference(c.UserContext(), user(c), c.Params("websafeConferenceKey"))
	return reply(c, v, err)
}

func (svc *service) queryConferences(c *fiber.Ctx) error {
	var form conference.ConferenceQueryForms
	err := parseBody(c, &form)
	if err != nil {
		return err
	}
	v, err := svc.conf.QueryConferences(c.UserContext(), user(c), &form)
	return reply(c, v, err)
}

func (svc *service) getConferencesCreated(c *fiber.Ctx) error {
	v, err := svc.conf.GetConferencesCreated(c.UserContext(), user(c))
	return reply(c, v, err)
}

func (svc *service) getConferencesToAttend(c *fiber.Ctx) error {
	v, err := svc.conf.GetConferencesToAttend(c.UserContext(), user(c))
	return reply(c, v, err)
}

func (svc *service) registerForConference(c *fiber.Ctx) error {
	v, err := svc.conf.RegisterForConference(c.UserContext(), user(c), c.Params("websafeConferenceKey"))
	return reply(c, v, err)
}

func (svc *service) unregisterFromConference(c *fiber.Ctx) error {
	v, err := svc.conf.UnregisterFromConference(c.UserContext(), user(c), c.Params("websafeConferenceKey"))
	return reply(c, v, err)
}

func (svc *service) createSession(c *fiber.Ctx) error {
	var form conference.SessionForm
	err := parseBody(c, &form)
	if err != nil {
		return err
	}
	v, err := svc.conf.CreateSession(c.UserContext(), user(c), &form)
	return reply(c, v, err)
}

func (svc *service) getConferenceSessions(c *fiber.Ctx) error {
	v, err := svc.conf.GetConferenceSessions(c.UserContext(), user(c), c.Params("websafeConferenceKey"))
	return reply(c, v, err)
}

func (svc *service) getConferenceSessionsByType(c *fiber.Ctx) error {
	v, err := svc.conf.GetConferenceSessionsByType(c.UserContext(), user(c), c.Params("websafeConferenceKey"), c.Params("typeOfSession"))
	return reply(c, v, err)
}

func (svc *service) getSessionsBySpeaker(c *fiber.Ctx) error {
	v, err := svc.conf.GetSessionsBySpeaker(c.UserContext(), user(c), c.Params("websafeSpeakerKey"))
	return reply(c, v, err)
}

func (svc *service) createSpeaker(c *fiber.Ctx) error {
	var form conference.SpeakerForm
	err := parseBody(c, &form)
	if err != nil {
		return err
	}
	v, err := svc.conf.CreateSpeaker(c.UserContext(), user(c), &form)
	return reply(c, v, err)
}

func (svc *service) getSpeakers(c *fiber.Ctx) error {
	v, err := svc.conf.GetSpeakers(c.UserContext(), user(c))
	return reply(c, v, err)
}

func (svc *service) getSessionWishlist(c *fiber.Ctx) error {
	v, err := svc.conf.GetSessionWishlist(c.UserContext(), user(c))
	return reply(c, v, err)
}

func (svc *service) addSessionToWishlist(c *fiber.Ctx) error {
	v, err := svc.conf.AddSessionToWishlist(c.UserContext(), user(c), c.Params("websafeSessionKey"))
	return reply(c, v, err)
}

func (svc *service) removeSessionFromWishlist(c *fiber.Ctx) error {
	v, err := svc.conf.RemoveSessionFromWishlist(c.UserContext(), user(c), c.Params("websafeSessionKey"))
	return reply(c, v, err)
}

// errorHandler maps errors to HTTP status codes. Internal errors are
// logged and their details withheld from the client.
func (svc *service) errorHandler(c *fiber.Ctx, err error) error {
	code := statusCode(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		svc.log.Error("internal error", "method", c.Method(), "path", c.Path(), "error", err)
		msg = "Internal server error"
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func statusCode(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, conference.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, conference.ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, conference.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, conference.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, conference.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
