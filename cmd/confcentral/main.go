/*
DESCRIPTION
  Conference Central web service.

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

// Conference Central is a cloud service for organizing conferences,
// their sessions and speakers, and for registering attendees.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ausocean/utils/logging"
	_ "github.com/joho/godotenv/autoload" // Autoload .env file.
	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/confcentral/conference"
	"github.com/ausocean/confcentral/datastore"
	"github.com/ausocean/confcentral/gauth"
	"github.com/ausocean/confcentral/model"
	"github.com/ausocean/confcentral/notify"
	"github.com/ausocean/confcentral/tasks"
)

// Project constants.
const (
	projectID   = "confcentral"
	version     = "v0.1.0"
	defaultPort = 8080
)

// Logging configuration.
const (
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = true
)

// Secret names.
const (
	jwtSecretKey         = "jwtSecret"
	mailjetPublicKeyKey  = "mailjetPublicKey"
	mailjetPrivateKeyKey = "mailjetPrivateKey"
)

// announcementSpec is the cron spec for refreshing the sold-out announcement.
const announcementSpec = "@hourly"

// service defines the properties of our web service.
type service struct {
	conf     *conference.Service
	queue    *tasks.Queue
	resolver gauth.Resolver
	log      logging.Logger
	debug    bool
}

func main() {
	port := defaultPort
	v := os.Getenv("PORT")
	if v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			port = i
		}
	}

	var (
		host       string
		logPath    string
		debug      bool
		standalone bool
	)
	flag.BoolVar(&debug, "debug", false, "Run in debug mode.")
	flag.BoolVar(&standalone, "standalone", false, "Run in standalone mode, with an in-memory datastore.")
	flag.StringVar(&host, "host", "", "Host we listen on")
	flag.IntVar(&port, "port", port, "Port we listen on")
	flag.StringVar(&logPath, "log", "", "Log file path, in addition to stdout")
	flag.Parse()

	level := int8(logging.Info)
	if debug {
		level = logging.Debug
	}
	var w io.Writer = os.Stdout
	if logPath != "" {
		fileLog := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		}
		w = io.MultiWriter(os.Stdout, fileLog)
	}
	log := logging.New(level, w, logSuppress)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := setup(ctx, log, standalone, debug)
	if err != nil {
		log.Fatal("could not set up service", "error", err)
	}

	go func() {
		err := svc.queue.Run(ctx)
		if err != nil {
			log.Error("task queue stopped", "error", err)
		}
	}()

	c := cron.New()
	_, err = c.AddFunc(announcementSpec, func() { svc.refreshAnnouncement(ctx) })
	if err != nil {
		log.Fatal("could not schedule announcement refresh", "error", err)
	}
	c.Start()
	defer c.Stop()
	svc.refreshAnnouncement(ctx)

	app := svc.newApp()
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		err := app.Shutdown()
		if err != nil {
			log.Error("could not shut down", "error", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", host, port)
	log.Info("listening", "address", addr, "version", version, "standalone", standalone)
	err = app.Listen(addr)
	if err != nil {
		log.Fatal("server failed", "error", err)
	}
}

// setup creates the datastore, notifier, task queue and identity
// resolver, and returns the service. In standalone mode, the
// datastore is in memory and missing secrets are tolerated.
func setup(ctx context.Context, log logging.Logger, standalone, debug bool) (*service, error) {
	kind := "cloud"
	if standalone {
		kind = "memory"
	}
	store, err := datastore.NewStore(ctx, kind, projectID, os.Getenv("CONFCENTRAL_CREDENTIALS"))
	if err != nil {
		return nil, fmt.Errorf("could not set up datastore: %w", err)
	}
	log.Info("set up datastore", "kind", kind)

	secrets, err := gauth.GetSecrets(ctx, projectID, []string{jwtSecretKey, mailjetPublicKeyKey, mailjetPrivateKeyKey})
	if err != nil {
		if !standalone {
			return nil, fmt.Errorf("could not get secrets: %w", err)
		}
		log.Warning("running without secrets", "error", err)
		secrets = nil
	}

	opts := []notify.Option{notify.WithStore(notify.NewStore(store)), notify.WithLogger(log)}
	if secrets != nil {
		opts = append(opts, notify.WithSecrets(secrets))
	}
	var notifier notify.Notifier
	err = notifier.Init(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not set up notifier: %w", err)
	}

	queue, err := tasks.NewQueue(log)
	if err != nil {
		return nil, fmt.Errorf("could not set up task queue: %w", err)
	}

	var resolver gauth.ChainResolver
	if secret := secrets[jwtSecretKey]; secret != "" {
		resolver = append(resolver, gauth.NewJWTResolver([]byte(secret)))
	}
	if clientID := os.Getenv("OAUTH_CLIENT_ID"); clientID != "" {
		resolver = append(resolver, gauth.NewGoogleResolver(clientID), gauth.NewUserInfoResolver(gauth.GoogleUserInfoURL))
	}

	conf := conference.New(store, queue, model.NewSlotCache(store), &notifier, log)
	conf.RegisterTasks(queue)

	return &service{conf: conf, queue: queue, resolver: resolver, log: log, debug: debug}, nil
}

// refreshAnnouncement queues a recomputation of the sold-out announcement.
func (svc *service) refreshAnnouncement(ctx context.Context) {
	_, err := svc.queue.Add(ctx, conference.TaskSetAnnouncement, nil)
	if err != nil {
		svc.log.Warning("could not queue announcement refresh", "error", err)
	}
}
