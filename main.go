package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"nombroludo/internal/store"
)

// App holds all server state and configuration.
type App struct {
	GameSessions map[string]*GameState
	SessionMutex sync.RWMutex

	Scores     *store.ScoreStore
	SessionDir string

	SessionTimeout time.Duration
	CookieMaxAge   time.Duration
	StaticCacheAge time.Duration

	RateLimitRPS   int
	RateLimitBurst int
	LimiterMap     map[string]*rate.Limiter
	LimiterMutex   sync.Mutex

	IsProduction bool
	StartTime    time.Time
}

func newApp() *App {
	return &App{
		GameSessions:   make(map[string]*GameState),
		SessionDir:     filepath.Join("data", "sessions"),
		SessionTimeout: getEnvDuration("SESSION_TIMEOUT", 2*time.Hour),
		CookieMaxAge:   getEnvDuration("COOKIE_MAX_AGE", 2*time.Hour),
		StaticCacheAge: getEnvDuration("STATIC_CACHE_AGE", 5*time.Minute),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		LimiterMap:     make(map[string]*rate.Limiter),
		IsProduction:   os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production",
		StartTime:      time.Now(),
	}
}

func main() {
	_ = godotenv.Load()

	app := newApp()
	logInfo("Starting Nombroludo in %s mode", map[bool]string{true: "production", false: "development"}[app.IsProduction])

	scorePath := os.Getenv("SCORE_DB_PATH")
	if scorePath == "" {
		scorePath = filepath.Join("data", "scores.db")
	}
	if err := os.MkdirAll(filepath.Dir(scorePath), 0755); err != nil {
		logFatal("Failed to create data directory: %v", err)
	}
	scores, err := store.Open(scorePath)
	if err != nil {
		logFatal("Failed to open score store: %v", err)
	}
	defer scores.Close()
	app.Scores = scores
	logInfo("Score store ready at %s", scorePath)

	if err := app.cleanupOldSessions(app.SessionTimeout); err != nil {
		logWarn("Initial session cleanup failed: %v", err)
	}

	router := app.setupRouter()
	app.startServer(router)
}

func (app *App) setupRouter() *gin.Engine {
	router := gin.Default()

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{"/static/fonts"})))
	router.Use(requestIDMiddleware())

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(func(c *gin.Context) {
		app.applyCacheHeaders(c)
	})

	if app.IsProduction && dirExists("dist") {
		logInfo("Serving assets from dist/ directory")
		router.LoadHTMLGlob("dist/templates/*.html")
		router.Static("/static", "./dist/static")
	} else {
		logInfo("Serving development assets from source directories")
		router.LoadHTMLGlob("templates/*.html")
		router.Static("/static", "./static")
	}

	router.GET(RouteHome, app.homeHandler)
	router.GET(RouteNewGame, app.newGameHandler)
	router.POST(RouteNewGame, app.rateLimitMiddleware(), app.newGameHandler)
	router.POST(RouteGuess, app.rateLimitMiddleware(), app.guessHandler)
	router.POST(RouteDifficulty, app.rateLimitMiddleware(), app.difficultyHandler)
	router.GET(RouteGameState, app.gameStateHandler)
	router.GET(RouteLeaderboard, app.leaderboardHandler)
	router.GET("/healthz", app.healthzHandler)

	return router
}

func (app *App) applyCacheHeaders(c *gin.Context) {
	if app.IsProduction && strings.HasPrefix(c.Request.URL.Path, "/static/") {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(app.StaticCacheAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})(c)
}

func (app *App) startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(app.SessionTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupDone:
				return
			case <-ticker.C:
				if err := app.cleanupOldSessions(app.SessionTimeout); err != nil {
					logWarn("Session cleanup failed: %v", err)
				}
			}
		}
	}()

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		logInfo("Shutdown signal received, shutting down server gracefully...")
		close(cleanupDone)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}
