package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/learnhub-io/learnhub/internal/api/http"
	auth "github.com/learnhub-io/learnhub/internal/auth/middleware"
	"github.com/learnhub-io/learnhub/internal/config"
	"github.com/learnhub-io/learnhub/internal/db"
	"github.com/learnhub-io/learnhub/internal/progress"
	"github.com/learnhub-io/learnhub/internal/quiz"
	"github.com/learnhub-io/learnhub/internal/rbac"
	"github.com/learnhub-io/learnhub/internal/store"
	syncx "github.com/learnhub-io/learnhub/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using system env")
	}
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	st := store.NewSQLStore(dbh)

	// --- Core ---
	registry := quiz.NewRegistry()
	countdownCtx, stopCountdown := context.WithCancel(context.Background())
	defer stopCountdown()
	go registry.RunCountdown(countdownCtx)

	tracker := progress.NewTracker(st, st)

	// --- Events ---
	var pub syncx.Publisher
	if cfg.AMQPURL != "" {
		p, err := syncx.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("amqp connect failed: %v", err)
		}
		defer p.Close()
		pub = p
	} else {
		log.Println("AMQP not configured, events stay in the local log")
	}
	recorder := syncx.NewRecorder(syncx.NewEventRepo(dbh), cfg.SiteID, pub)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		// Instructor: author catalog content
		pr.With(rbac.Require("course:create")).
			Put("/courses/{courseID}", api.UpsertCourseHandler(st))
		pr.With(rbac.Require("quiz:create")).
			Put("/courses/{courseID}/quizzes/{quizID}", api.UpsertQuizHandler(st))

		// Catalog reads
		pr.With(rbac.Require("course:view")).
			Get("/courses/{courseID}", api.GetCourseHandler(st))
		pr.With(rbac.Require("quiz:view")).
			Get("/courses/{courseID}/quizzes/{quizID}", api.GetQuizHandler(st))

		// Attempt flow
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.CreateAttemptHandler(st, registry, st))
		pr.With(rbac.Require("attempt:answer")).
			Post("/attempts/{attemptID}/answers", api.SelectAnswerHandler(registry))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(registry, recorder))
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts/{attemptID}/restart", api.RestartAttemptHandler(registry))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(registry))

		pr.With(rbac.RequireAny("submissions:view-own", "submissions:view-all")).
			Get("/learners/{learnerID}/submissions", api.ListSubmissionsHandler(st))

		// Progress flow
		pr.With(rbac.Require("enrollment:enroll")).
			Post("/courses/{courseID}/enroll", api.EnrollHandler(tracker, recorder))
		pr.With(rbac.Require("lesson:toggle")).
			Put("/courses/{courseID}/lessons/{lessonID}/completion", api.SetLessonCompletionHandler(tracker, recorder))
		pr.With(rbac.RequireAny("progress:view-own", "progress:view-all")).
			Get("/courses/{courseID}/progress", api.GetProgressHandler(tracker))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
