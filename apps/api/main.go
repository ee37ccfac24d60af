package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/hazard-Tom2004/TESA-API/apps/api/echo"
	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/course"
	"github.com/hazard-Tom2004/TESA-API/core/material"
	"github.com/hazard-Tom2004/TESA-API/core/token"
	"github.com/hazard-Tom2004/TESA-API/core/user"
	"github.com/hazard-Tom2004/TESA-API/services/email"
	"github.com/hazard-Tom2004/TESA-API/services/logger"
	"github.com/hazard-Tom2004/TESA-API/services/storage"
	"github.com/hazard-Tom2004/TESA-API/storage/database"
	"github.com/hazard-Tom2004/TESA-API/storage/database/inmem"
	"github.com/hazard-Tom2004/TESA-API/storage/database/sqlx"
	"github.com/hazard-Tom2004/TESA-API/storage/ledger/gocache"
	"github.com/hazard-Tom2004/TESA-API/storage/ledger/redis"
)

func main() {
	std := stdlog.New(os.Stdout, "API : ", stdlog.LstdFlags|stdlog.Lshortfile)

	conf := core.NewConfig()
	core.InitValidators()
	academic.InitValidators()
	material.InitValidators()

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	if err := run(conf, logger, std); err != nil {
		logger.Fatal("starting api", err)
	}
}

func run(conf *core.Config, logger core.Logger, std *stdlog.Logger) error {
	// repositories
	db, err := inmemdb.Open()
	if err != nil {
		return err
	}
	usrRepo := inmemdb.NewUserRepository(db)
	academicRepo := inmemdb.NewAcademicRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	materialRepo := inmemdb.NewMaterialRepository(db)

	// user accounts live in postgres outside local development
	if !conf.Debug {
		sqlDB, err := database.Open(conf)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		usrRepo = sqlxrepos.NewUserRepository(sqlDB)
	}

	// token ledger: process-local in local development, shared via redis otherwise
	var tokenRepo token.Repository
	if conf.Debug {
		tokenRepo = gocacheledger.NewTokenRepository(conf)
	} else {
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		tokenRepo = redisledger.NewTokenRepository(conf, client)
	}

	// email
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewOutbox(emailsvc.NewSendgridService(conf, logger), logger)
	}

	// blob storage
	ctx := context.Background()
	var blobSvc core.BlobService
	if conf.B2.KeyID != "" {
		if blobSvc, err = storagesvc.NewB2Service(ctx, conf); err != nil {
			return err
		}
	} else {
		blobSvc = storagesvc.NewInmemService(conf.FrontendBaseURL + "/files")
	}

	// domain services
	usrSvc := user.NewService(conf, usrRepo, tokenRepo, mailSvc, logger)
	academicSvc := academic.NewService(academicRepo)
	courseSvc := course.NewService(courseRepo, academicSvc, logger)
	materialSvc := material.NewService(materialRepo, courseSvc, blobSvc, logger)

	app := echoapi.NewServer(&echoapi.Options{
		Conf:        conf,
		Logger:      logger,
		UserSvc:     usrSvc,
		AcademicSvc: academicSvc,
		CourseSvc:   courseSvc,
		MaterialSvc: materialSvc,
		Blobs:       blobSvc,
	})

	serverErrors := make(chan error, 1)
	go func() {
		std.Printf("%s server listening on %s", conf.AppName, conf.Server.Host)
		serverErrors <- app.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-serverErrors:
		return err
	case <-app.ShutdownSignal():
		std.Print("integrity issue: shutting down...")
	case sig := <-quit:
		std.Printf("%v: shutting down...", sig)
	}

	shutCtx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
	defer cancel()
	if err = app.Stop(shutCtx); err != nil {
		std.Printf("graceful shutdown failed: %v", err)
		return app.Stop(ctx)
	}
	return nil
}
