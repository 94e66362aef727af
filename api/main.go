package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

type config struct {
	Port int    `env:"PORT" envDefault:"5000"`
	Env  string `env:"APP_ENV" envDefault:"development"`
	DB   struct {
		DSN          string        `env:"DATABASE_URL" envDefault:"sqlite:///app.db"`
		MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
		MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"15m"`
	}
	JWT struct {
		Secret string        `env:"JWT_SECRET_KEY"`
		TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	}
	SMTP struct {
		Host     string `env:"SMTP_HOST"`
		Port     int    `env:"SMTP_PORT" envDefault:"25"`
		Username string `env:"SMTP_USERNAME"`
		Password string `env:"SMTP_PASSWORD"`
		Sender   string `env:"SMTP_SENDER" envDefault:"Task Tracker <no-reply@tasktracker.local>"`
	}
	CORS struct {
		TrustedOrigins []string `env:"CORS_TRUSTED_ORIGINS" envSeparator:" "`
	}
}

type application struct {
	config  config
	logger  *log.Logger
	storage *storage
	tokens  *tokenIssuer
	mailer  mailSender
	wg      sync.WaitGroup
}

// loadConfig reads the environment first and lets command-line flags override it.
// A nil environ means the process environment.
func loadConfig(args []string, environ map[string]string) (config, error) {
	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	flags := flag.NewFlagSet("api", flag.ContinueOnError)
	flags.IntVar(&cfg.Port, "port", cfg.Port, "Server port")
	flags.StringVar(&cfg.Env, "env", cfg.Env, "Environment [development|production]")

	flags.StringVar(&cfg.DB.DSN, "db-dsn", cfg.DB.DSN, "Database URL (postgres://... or sqlite:///path)")
	flags.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", cfg.DB.MaxOpenConns, "Database max open connections")
	flags.IntVar(&cfg.DB.MaxIdleConns, "db-max-idle-conns", cfg.DB.MaxIdleConns, "Database max idle connections")
	flags.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", cfg.DB.MaxIdleTime, "Database max connection idle time")

	flags.StringVar(&cfg.JWT.Secret, "jwt-secret", cfg.JWT.Secret, "JWT signing secret")
	flags.DurationVar(&cfg.JWT.TTL, "jwt-ttl", cfg.JWT.TTL, "JWT lifetime (0 disables expiry)")

	flags.StringVar(&cfg.SMTP.Host, "smtp-host", cfg.SMTP.Host, "SMTP host (empty disables mail)")
	flags.IntVar(&cfg.SMTP.Port, "smtp-port", cfg.SMTP.Port, "SMTP port")
	flags.StringVar(&cfg.SMTP.Username, "smtp-username", cfg.SMTP.Username, "SMTP username")
	flags.StringVar(&cfg.SMTP.Password, "smtp-password", cfg.SMTP.Password, "SMTP password")
	flags.StringVar(&cfg.SMTP.Sender, "smtp-sender", cfg.SMTP.Sender, "SMTP sender")

	flags.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(val string) error {
		cfg.CORS.TrustedOrigins = strings.Fields(val)
		return nil
	})

	if err := flags.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.JWT.TTL < 0 {
		return cfg, errors.New("jwt ttl must not be negative")
	}
	return cfg, nil
}

func main() {
	logger := log.New(os.Stdout, "", log.Ldate|log.Ltime|log.Lshortfile)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Printf("load .env: %v", err)
	}

	cfg, err := loadConfig(os.Args[1:], nil)
	if err != nil {
		logger.Fatal(err)
	}

	if cfg.JWT.Secret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Fatal(err)
		}
		cfg.JWT.Secret = hex.EncodeToString(secret)
		logger.Println("JWT_SECRET_KEY is not set, tokens are signed with a per-process random secret")
	}

	db, d, err := openDB(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	defer db.Close()
	logger.Printf("established a connection with %s database", d.name)

	if err := applyMigrations(db, d); err != nil {
		logger.Fatal(err)
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		storage: newStorage(db, d, time.Now),
		tokens:  newTokenIssuer([]byte(cfg.JWT.Secret), cfg.JWT.TTL, time.Now),
	}
	if cfg.SMTP.Host != "" {
		app.mailer = newMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
	}

	if err := app.serve(); err != nil {
		logger.Print(err)
		return
	}
}

// background runs fn on its own goroutine. serve waits for it on shutdown and a
// panic in fn is logged instead of taking the process down.
func (app *application) background(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				app.logger.Printf("background task panic: %v", err)
			}
		}()
		fn()
	}()
}

func (app *application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Port),
		Handler:      composeRoutes(app),
		ErrorLog:     app.logger,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdownErr := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		app.logger.Printf("caught signal %s, shutting down server", s)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			shutdownErr <- err
			return
		}

		app.logger.Println("completing background tasks")
		app.wg.Wait()
		shutdownErr <- nil
	}()

	app.logger.Printf("starting %s server (v%s) on port %d", app.config.Env, version, app.config.Port)
	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownErr; err != nil {
		return err
	}
	app.logger.Println("stopped server")
	return nil
}
