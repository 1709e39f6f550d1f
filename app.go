package main

import (
	"context"
	"fmt"

	"site-cms/config"
	"site-cms/helper"
	"site-cms/middleware"
	"site-cms/models"
	"site-cms/notify"
	"site-cms/repositories"
	"site-cms/routes"
	"site-cms/services"
	"site-cms/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

func openRepositories(cfg *config.Config, store string) (repositories.Set, error) {
	switch store {
	case storeMemory:
		return repositories.NewMemoryStore().Set(), nil
	case storePostgres:
		db, err := config.InitDB(cfg)
		if err != nil {
			return repositories.Set{}, err
		}
		return repositories.NewGormSet(db), nil
	}
	return repositories.Set{}, fmt.Errorf("unknown store %q", store)
}

func newFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, error) {
	switch cfg.StorageDriver {
	case "local":
		return storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL(), cfg.MaxUploadBytes), nil
	case "minio":
		scheme := "http://"
		if cfg.S3UseSSL {
			scheme = "https://"
		}
		store, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
			BaseURL:   scheme + cfg.S3Endpoint + "/" + cfg.S3Bucket,
			MaxSize:   cfg.MaxUploadBytes,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func newMailer(cfg *config.Config, log logrus.FieldLogger) notify.Mailer {
	if cfg.SMTPHost == "" {
		return notify.LogMailer{Log: log}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		SiteURL:  cfg.PublicBaseURL,
	})
}

// seedAdmin creates the bootstrap admin on an empty user table.
func seedAdmin(ctx context.Context, cfg *config.Config, repos repositories.Set, log logrus.FieldLogger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	count, err := repos.Users.Count(ctx)
	if err != nil || count > 0 {
		return err
	}
	auth := services.NewAuthService(repos.Users, cfg.JWT())
	res, err := auth.Register(ctx, models.RegisterRequest{
		Username: "admin",
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.WithField("email", res.User.Email).Info("Bootstrap admin created")
	return nil
}

// buildRouter wires repositories, services and handlers into the engine.
func buildRouter(ctx context.Context, cfg *config.Config, repos repositories.Set, log *logrus.Logger) (*gin.Engine, error) {
	files, err := newFileStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hub := notify.NewHub(log)
	mailer := newMailer(cfg, log)

	authService := services.NewAuthService(repos.Users, cfg.JWT())
	linkService := services.NewLinkService(repos.Links, repos.Submissions, hub, log)
	intakeService := services.NewIntakeService(linkService, repos.Links, repos.Submissions, files, hub, log)
	publisher := services.NewPublisher(repos.Stories, repos.Submitters, files, log)
	reviewService := services.NewReviewService(repos.Submissions, publisher, files, hub, mailer, log)
	storyService := services.NewStoryService(repos.Stories, log)

	uploadDir := ""
	if cfg.StorageDriver == "local" {
		uploadDir = cfg.UploadDir
	}

	return routes.Setup(routes.Deps{
		Auth:               authService,
		Links:              linkService,
		Intake:             intakeService,
		Review:             reviewService,
		Stories:            storyService,
		Hub:                hub,
		Helper:             helper.NewHTTPHelper(log),
		Log:                log,
		Limiter:            middleware.NewIPRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst),
		CORSOrigins:        cfg.AllowedOrigins(),
		UploadDir:          uploadDir,
		MaxMultipartMemory: 8 << 20,
	}), nil
}
