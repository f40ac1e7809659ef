package main

import (
	"log/slog"
	"os"

	"github.com/skyloft-tech/AcademiQa/config"
	"github.com/skyloft-tech/AcademiQa/engine"
	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/notify"
	"github.com/skyloft-tech/AcademiQa/realtime"
	"github.com/skyloft-tech/AcademiQa/routes"
	"github.com/skyloft-tech/AcademiQa/utils"
)

func main() {
	cfg := config.Load()
	utils.SetJWTSecret(cfg.JWTSecret)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskCategory{},
		&models.TaskFile{},
		&models.Revision{},
		&models.ChatMessage{},
		&models.BudgetProposal{},
		&models.Notification{},
	); err != nil {
		logger.Error("migration failed", "err", err)
		os.Exit(1)
	}

	var mailer notify.Mailer = notify.NoopMailer{}
	if cfg.SMTPHost != "" {
		smtp, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			From:        cfg.MailFrom,
			FrontendURL: cfg.FrontendURL,
		})
		if err != nil {
			logger.Error("smtp setup failed", "err", err)
			os.Exit(1)
		}
		mailer = smtp
	}

	hub := realtime.NewHub(logger)
	dispatcher := notify.NewDispatcher(db, mailer, cfg.ExtraAdminEmails, cfg.QueueSize, cfg.DispatchWorkers, logger)
	defer dispatcher.Stop()

	eng := engine.New(db, hub, dispatcher, cfg.WithdrawalGrace)
	ws := realtime.NewHandler(db, hub, dispatcher, utils.ActorFromToken, logger)

	r := routes.SetupRouter(routes.Deps{
		DB:        db,
		Engine:    eng,
		Hub:       hub,
		WS:        ws,
		Notifier:  dispatcher,
		UploadDir: cfg.UploadDir,
	})
	if err := r.Run(cfg.Addr); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
