// Package main library desk API.
//
// @title           Library Desk API
// @version         1.0
// @description     Library management service (catalog, borrow requests, favorites, reviews, users).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/sync/errgroup"

	"librarydesk/app/echoServer"
	authctrl "librarydesk/app/echoServer/controller/auth"
	bookctrl "librarydesk/app/echoServer/controller/book"
	borrowctrl "librarydesk/app/echoServer/controller/borrow"
	userctrl "librarydesk/app/echoServer/controller/user"
	"librarydesk/app/echoServer/validation"
	"librarydesk/app/notify"
	"librarydesk/config"
	authrepo "librarydesk/repository/auth"
	bookrepo "librarydesk/repository/book"
	borrowrepo "librarydesk/repository/borrow"
	userrepo "librarydesk/repository/user"
	authsvc "librarydesk/service/auth"
	booksvc "librarydesk/service/book"
	borrowsvc "librarydesk/service/borrow"
	usersvc "librarydesk/service/user"
	"librarydesk/util/database"
	"librarydesk/util/imagestore"
)

func main() {

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB: pgxpool
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	images, err := imagestore.NewLocal(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Error("upload dir unavailable", "dir", cfg.UploadDir, "err", err)
		os.Exit(1)
	}

	// repos
	ar := authrepo.New(db)
	br := bookrepo.New(db)
	rr := borrowrepo.New(db)
	ur := userrepo.New(db)

	// services
	fine := borrowsvc.FinePolicy{PerDay: cfg.FinePerDay}
	mailer := authsvc.LogMailer{Log: log, BaseURL: cfg.ClientURL}
	as := authsvc.New(ar, ur, mailer, cfg.JWTSecret, cfg.JWTTTL)
	bs := booksvc.New(br, images)
	rs := borrowsvc.New(rr, fine, time.Now)
	us := usersvc.New(ur)

	hub := notify.NewHub(log, cfg.ClientURL)
	watcher := borrowsvc.NewWatcher(rr, hub, fine, log, time.Now)

	// controllers
	v := validation.New()
	authC := &authctrl.Controller{Svc: as, V: v.Engine(), Log: log, TokenTTL: cfg.JWTTTL, Secure: cfg.Production()}
	bookC := &bookctrl.Controller{Svc: bs, V: v.Engine(), Log: log}
	borrowC := &borrowctrl.Controller{Svc: rs, V: v.Engine(), Log: log}
	userC := &userctrl.Controller{Svc: us, V: v.Engine(), Log: log}

	// echo
	e := echo.New()
	e.HideBanner = true
	echoServer.RegisterMiddlewares(e, log, cfg.ClientURL)
	e.Validator = v

	e.GET("/health", func(c echo.Context) error {
		if err := db.Pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "down", "message": err.Error()})
		}
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static("/uploads", cfg.UploadDir)

	echoServer.Register(e, echoServer.C{
		Auth:   authC,
		Book:   bookC,
		Borrow: borrowC,
		User:   userC,
		WS:     hub.Serve,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "PORT_env", os.Getenv("PORT"), "chosen_port", port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return watcher.Run(gctx, cfg.OverdueScanInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
