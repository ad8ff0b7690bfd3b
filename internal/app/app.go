package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"formazing-backend/config"
	"formazing-backend/internal/api"
	"formazing-backend/internal/db"
	"formazing-backend/internal/graph"
	"formazing-backend/internal/notify"
	"formazing-backend/internal/notion"
	"formazing-backend/internal/store"
	"formazing-backend/internal/telegram"
	"formazing-backend/internal/training"
)

// App is the wired service.
type App struct {
	Router   *gin.Engine
	Training *training.Service
	DB       *gorm.DB
}

// New opens the database, builds every gateway and the orchestrator, and mounts the HTTP routes.
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	loc := cfg.Training.Location()
	secrets := cfg.Secrets

	records, err := notion.NewClient(&cfg.Notion, secrets.NotionToken, secrets.NotionDatabaseID, loc,
		log.WithField("component", "notion"))
	if err != nil {
		return nil, err
	}

	calendar, err := graph.NewClient(&cfg.Graph, &cfg.Calendar, cfg.Training.Timezone, graph.Credentials{
		ClientID:     secrets.MicrosoftClientID,
		ClientSecret: secrets.MicrosoftClientSecret,
		Organizer:    secrets.MicrosoftUserEmail,
	}, log.WithField("component", "graph"))
	if err != nil {
		return nil, err
	}

	sender := telegram.NewSender(&cfg.Telegram, secrets.TelegramBotToken, log.WithField("component", "telegram"))

	notifyLog := log.WithField("component", "notify")
	resolver := notify.NewResolver(telegram.Targets(cfg.Telegram.Groups), cfg.Training.StandardAreas, notifyLog)
	formatter := notify.NewFormatter(notify.Templates{
		Broadcast: cfg.Training.Templates.Broadcast,
		Group:     cfg.Training.Templates.Group,
		Feedback:  cfg.Training.Templates.Feedback,
	}, notifyLog)

	runs := store.NewRunStore(gormDB)
	svc := training.New(training.Deps{
		Store:     records,
		Calendar:  calendar,
		Messenger: sender,
		Counter:   store.NewGormCounter(gormDB, cfg.Training.CounterName),
		Journal:   runs,
		Resolver:  resolver,
		Formatter: formatter,
	}, &cfg.Training, log.WithField("component", "training"))

	var accounts gin.Accounts
	if secrets.BasicAuthPassword != "" {
		accounts = gin.Accounts{secrets.BasicAuthUsername: secrets.BasicAuthPassword}
	} else {
		log.Warn("BASIC_AUTH_PASSWORD is not set; the API is unauthenticated")
	}

	handler := api.NewHandler(svc, runs, log.WithField("component", "api"))
	return &App{
		Router:   api.NewRouter(handler, &cfg.Server, accounts),
		Training: svc,
		DB:       gormDB,
	}, nil
}

// Close releases the database connection pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
