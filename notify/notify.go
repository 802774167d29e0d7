/*
LICENSE
  Copyright (C) 2024-2026 the Australian Ocean Lab (AusOcean)

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

// Package notify sends email notifications using the MailJet API.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	mailjet "github.com/mailjet/mailjet-apiv3-go"
)

const (
	defaultSender = "confcentral@ausocean.org"
	defaultPeriod = 24 * time.Hour
)

// Notifier represents a notifier that uses the MailJet API to send email.
type Notifier struct {
	mutex      sync.Mutex     // Lock access.
	sender     string         // Sender email address.
	store      TimeStore      // Notification store (optional).
	period     time.Duration  // Minimum time between messages with the same ID.
	publicKey  string         // Public key for accessing MailJet API.
	privateKey string         // Private key for accessing MailJet API.
	transport  Transport      // Delivers messages (optional).
	log        logging.Logger // Logger, which defaults to stderr.
}

// Transport delivers MailJet messages.
type Transport func(ctx context.Context, msgs *mailjet.MessagesV31) error

// Init initializes a notifier with the supplied options. See
// WithSender, WithStore, WithPeriod, WithSecrets, WithTransport and
// WithLogger for a description of the various options. Secrets are
// required to send actual emails using the MailJet API, but can be
// omitted during testing, in which case messages are only logged. It
// is permissable to re-initalize a Notifier with different options,
// however missing options will revert to their defaults.
func (n *Notifier) Init(options ...Option) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	// Set default values.
	n.sender = defaultSender
	n.store = nil
	n.period = defaultPeriod
	n.publicKey = ""
	n.privateKey = ""
	n.transport = nil
	n.log = nil

	// Apply options.
	for i, opt := range options {
		err := opt(n)
		if err != nil {
			return fmt.Errorf("could not apply option # %d, %w", i, err)
		}
	}

	if n.log == nil {
		n.log = logging.New(logging.Info, os.Stderr, true)
	}
	if n.transport == nil && n.publicKey != "" && n.privateKey != "" {
		n.transport = mailjetTransport(n.publicKey, n.privateKey)
	}
	return nil
}

// Send sends an email message to the recipient. The id identifies the
// message. With a store, a message is not sent again if a message
// with the same id was sent within the notifier's period, which makes
// it safe to retry.
func (n *Notifier) Send(ctx context.Context, id, recipient, subject, body string) error {
	n.mutex.Lock()
	sender, store, period, transport, log := n.sender, n.store, n.period, n.transport, n.log
	n.mutex.Unlock()
	if log == nil {
		return errors.New("notifier not initialized")
	}

	if store != nil {
		sendable, err := store.Sendable(ctx, id, period)
		if err != nil {
			log.Warning("store.Sendable returned error", "id", id, "error", err)
		}
		if !sendable {
			log.Info("message already sent", "id", id, "recipient", recipient)
			return nil
		}
	}

	log.Info("sending message", "id", id, "recipient", recipient, "subject", subject)

	if transport != nil {
		info := []mailjet.InfoMessagesV31{{
			From:     &mailjet.RecipientV31{Email: sender},
			To:       &mailjet.RecipientsV31{mailjet.RecipientV31{Email: recipient}},
			Subject:  subject,
			TextPart: body,
		}}
		err := transport(ctx, &mailjet.MessagesV31{Info: info})
		if err != nil {
			return fmt.Errorf("could not send mail: %w", err)
		}
	}

	if store != nil {
		err := store.Sent(ctx, id)
		if err != nil {
			log.Warning("store.Sent returned error", "id", id, "error", err)
		}
	}

	return nil
}

// mailjetTransport returns a Transport that uses the MailJet API.
func mailjetTransport(publicKey, privateKey string) Transport {
	clt := mailjet.NewMailjetClient(publicKey, privateKey)
	return func(ctx context.Context, msgs *mailjet.MessagesV31) error {
		_, err := clt.SendMailV31(msgs)
		return err
	}
}
