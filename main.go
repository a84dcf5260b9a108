// Package main library rental API.
//
// @title           Library Rental API
// @version         1.0
// @description     Library rental service (books, borrowings, payments, fines).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"libraryrental/app/echoServer"
	authctrl "libraryrental/app/echoServer/controller/auth"
	bookctrl "libraryrental/app/echoServer/controller/book"
	borrowingctrl "libraryrental/app/echoServer/controller/borrowing"
	paymentctrl "libraryrental/app/echoServer/controller/payment"
	"libraryrental/app/echoServer/validation"
	"libraryrental/config"
	bookrepo "libraryrental/repository/book"
	borrowingrepo "libraryrental/repository/borrowing"
	paymentrepo "libraryrental/repository/payment"
	striperepo "libraryrental/repository/stripe"
	telegramrepo "libraryrental/repository/telegram"
	userrepo "libraryrental/repository/user"
	authsvc "libraryrental/service/auth"
	booksvc "libraryrental/service/book"
	borrowingsvc "libraryrental/service/borrowing"
	paymentsvc "libraryrental/service/payment"
	"libraryrental/util/clock"
	"libraryrental/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db, "migrations"); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	rr := borrowingrepo.New(db)
	pr := paymentrepo.New(db)
	gw := striperepo.NewHTTP(cfg.StripeAPIKey, cfg.StripeSuccessURL, cfg.StripeCancelURL)
	tg := telegramrepo.NewHTTP(cfg.TelegramBotToken, cfg.TelegramChatID)

	clk := clock.NewSystem()

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br)
	rs := borrowingsvc.New(rr, pr, gw, clk, borrowingsvc.Config{FineMultiplier: cfg.FineMultiplier})
	ps := paymentsvc.New(pr, gw, tg)
	overdue := borrowingsvc.NewOverdueNotifier(rr, tg, clk)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	borrowingC := &borrowingctrl.Controller{Svc: rs, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:      authC,
		Book:      bookC,
		Borrowing: borrowingC,
		Payment:   paymentC,

		JWTSecret: cfg.JWTSecret,
	})

	// background reconciliation: expire stale payment sessions, nag overdue loans
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.SweepIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := ps.SweepExpired(ctx); err != nil {
					log.Error("payment sweep failed", "err", err)
				} else if n > 0 {
					log.Info("payment sweep", "expired", n)
				}
				if n, err := overdue.NotifyOverdue(ctx); err != nil {
					log.Error("overdue scan failed", "err", err)
				} else if n > 0 {
					log.Info("overdue scan", "notified", n)
				}
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	slog.Info("starting server", "chosen_port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
