package main

import (
	"io"
	"log"
	"os"

	"ClientMax/Access"
	"ClientMax/Config"
	"ClientMax/Controllers"
	"ClientMax/CronJobs"
	"ClientMax/FiberConfig"
	"ClientMax/Models"
	"ClientMax/Realtime"
	"ClientMax/Slack"
	"ClientMax/Store"
	"ClientMax/email"
)

func main() {
	setupLogging()

	cfg, err := Config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := Models.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	feed := Realtime.NewNotifier(16)
	stores := Store.New(db, feed)
	gate := Access.NewGate(cfg.PrivilegedRole, cfg.PrivilegedEmails, cfg.PrivilegedRequireEmail)

	var notifiers []Controllers.AssignmentNotifier
	var slackNotifier *Slack.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannelID != "" {
		slackNotifier = Slack.NewNotifier(cfg.SlackBotToken, cfg.SlackChannelID)
		notifiers = append(notifiers, slackNotifier)
	}
	var mailer *email.Mailer
	if cfg.SMTP.Enabled() {
		mailer = email.NewMailer(Models.EmailConfig{
			SMTPServer:   cfg.SMTP.Host,
			SMTPPort:     cfg.SMTP.Port,
			Username:     cfg.SMTP.Username,
			Password:     cfg.SMTP.Password,
			FromEmail:    cfg.SMTP.FromEmail,
			FromName:     cfg.SMTP.FromName,
			TLSEnabled:   cfg.SMTP.TLSEnabled,
			SkipTLSCheck: cfg.SMTP.SkipTLSCheck,
		})
		notifiers = append(notifiers, mailer)
	}

	if cfg.KeepAliveEnabled {
		keepAlive := CronJobs.NewKeepAlive(cfg.ServiceURL, cfg.KeepAliveInterval)
		if err := keepAlive.Start(); err != nil {
			log.Printf("Failed to start keep-alive: %v", err)
		}
		defer keepAlive.Stop()
	}

	if slackNotifier != nil || mailer != nil {
		digest := CronJobs.NewDigest(cfg.DigestSchedule, stores.Assignments, nil)
		if slackNotifier != nil {
			digest.Poster = slackNotifier
		}
		if mailer != nil {
			digest.Mailer = mailer
			digest.Recipients = cfg.PrivilegedEmails
		}
		if err := digest.Start(); err != nil {
			log.Printf("Failed to start assignment digest: %v", err)
		}
		defer digest.Stop()
	}

	if err := FiberConfig.FiberConfig(FiberConfig.Dependencies{
		Config:    cfg,
		Stores:    stores,
		Feed:      feed,
		Gate:      gate,
		Notifiers: notifiers,
	}); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func setupLogging() {
	// Create logs directory if it doesn't exist
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Error creating logs directory: %v\n", err)
		return
	}

	// Set up main application log file
	logFile, err := os.OpenFile("logs/application.log",
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)

	if err != nil {
		log.Printf("Error opening log file: %v\n", err)
		return
	}

	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	log.SetFlags(log.Ldate | log.Ltime)
}
