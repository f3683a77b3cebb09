package main

import (
	"context"
	"fmt"
	"html/template"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/auth"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/bus"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/catalog"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/config"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/health"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/middleware"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/ratelimit"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/session"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/store"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/tracing"
)

func main() {
	// Load .env for local development; missing file is fine in prod,
	// where the real environment is already populated.
	for _, path := range []string{".env", "../../../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	ctx := context.Background()

	if collectorAddr := os.Getenv("OTEL_COLLECTOR_ADDR"); collectorAddr != "" {
		tp, err := tracing.InitTracer(ctx, "scribble-session", collectorAddr)
		if err != nil {
			logging.Warn(ctx, "failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	var validator session.TokenValidator
	if cfg.DevelopmentMode {
		logging.Warn(ctx, "running with MockValidator - do not use in production")
		validator = &auth.MockValidator{}
	} else {
		v, err := auth.NewValidator(cfg.SecretKeyBase, cfg.AuthIssuer, cfg.AuthAudience)
		if err != nil {
			logging.Fatal(ctx, "failed to create auth validator", zap.Error(err))
		}
		validator = v
	}

	var busService *bus.Service
	var redisClient *redis.Client
	var hubBus session.BusService
	if cfg.RedisEnabled {
		svc, err := bus.NewService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logging.Fatal(ctx, "failed to connect to Redis", zap.Error(err))
		}
		busService = svc
		redisClient = svc.Client()
		hubBus = svc
		logging.Info(ctx, "connected to Redis", zap.String("addr", cfg.RedisAddr))
	} else {
		logging.Warn(ctx, "Redis disabled - running single-instance, no cross-pod fanout")
	}

	var stateStore *store.Store
	if redisClient != nil {
		stateStore = store.New(redisClient)
	}

	wordCatalog, err := catalog.Load()
	if err != nil {
		logging.Fatal(ctx, "failed to load word catalog", zap.Error(err))
	}

	var rlValidator ratelimit.TokenValidator
	if tv, ok := validator.(ratelimit.TokenValidator); ok {
		rlValidator = tv
	}
	limiter, err := ratelimit.NewRateLimiter(cfg, redisClient, rlValidator)
	if err != nil {
		logging.Fatal(ctx, "failed to create rate limiter", zap.Error(err))
	}

	healthHandler := health.NewHandler(busService)

	hub := session.NewHub(validator, hubBus, wordCatalog)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("scribble-session"))
	router.Use(middleware.CorrelationID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = auth.GetAllowedOriginsFromEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	corsCfg.AllowCredentials = true
	router.Use(cors.New(corsCfg))

	router.Use(limiter.GlobalMiddleware())

	router.GET("/ws/room/:roomId", hub.ServeWs)

	api := router.Group("/api")
	{
		rooms := api.Group("/rooms")
		rooms.Use(limiter.MiddlewareForEndpoint("rooms"))
		rooms.GET("/join-random", hub.JoinRandomRoom)
		rooms.GET("/generate-id", generateRoomID(stateStore))

		images := api.Group("/images")
		images.GET("/game-over", func(c *gin.Context) { c.Status(http.StatusMethodNotAllowed) })
		images.POST("/game-over", gameOverImage)
	}

	router.GET("/health", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
	if busService != nil {
		_ = busService.Close()
	}

	logging.Info(ctx, "server exiting")
}

// gameOverScore is one row of the leaderboard the auth-free game-over
// image endpoint renders; the caller (frontend, sharing a finished
// game's results) supplies the final scores directly in the request
// body since there's no live room to query once a game has ended.
type gameOverScore struct {
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

type gameOverRequest struct {
	Players []gameOverScore `json:"players"`
}

var gameOverTemplate = template.Must(template.New("game-over").Funcs(template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"mul": func(a, b int) int { return a * b },
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="320" height="{{len .Players | add 60}}" font-family="sans-serif">
  <rect width="100%" height="100%" fill="#1e1e2e" rx="12"/>
  <text x="20" y="32" font-size="20" fill="#f5e0dc" font-weight="bold">Final Scores</text>
  {{range $i, $p := .Players}}
  <text x="20" y="{{add 64 (mul $i 28)}}" font-size="16" fill="#cdd6f4">{{$p.DisplayName}}</text>
  <text x="280" y="{{add 64 (mul $i 28)}}" font-size="16" fill="#a6e3a1" text-anchor="end">{{$p.Score}}</text>
  {{end}}
</svg>`))

func gameOverImage(c *gin.Context) {
	var req gameOverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	c.Header("Content-Type", "image/svg+xml")
	if err := gameOverTemplate.Execute(c.Writer, req); err != nil {
		logging.Error(c.Request.Context(), "failed to render game-over image", zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}

// roomSlugAdjectives and roomSlugNouns back the human-friendly room-id
// slugs generate-id hands out, independent of the guess-word catalog.
var roomSlugAdjectives = []string{"quick", "lazy", "bright", "silent", "bold", "gentle", "quiet", "sunny", "clever", "swift"}
var roomSlugNouns = []string{"otter", "falcon", "maple", "comet", "harbor", "meadow", "ember", "willow", "canyon", "lantern"}

// generateRoomID returns a handler that mints an adjective-noun slug and
// checks it for uniqueness against the shared state store, retrying with
// a numeric suffix on collision. Falls back to a uuid suffix when no
// store is configured (single-instance mode has no collision risk across
// pods, but a second request in the same second could still collide).
func generateRoomID(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		for attempt := 0; attempt < 5; attempt++ {
			slug := fmt.Sprintf("%s-%s", roomSlugAdjectives[rand.Intn(len(roomSlugAdjectives))], roomSlugNouns[rand.Intn(len(roomSlugNouns))])
			if attempt > 0 {
				slug = fmt.Sprintf("%s-%d", slug, attempt)
			}

			if s == nil {
				c.JSON(http.StatusOK, gin.H{"room_id": slug + "-" + uuid.NewString()})
				return
			}

			meta, err := s.RoomMeta(ctx, slug)
			if err != nil {
				logging.Error(ctx, "generate-id: store lookup failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate room id"})
				return
			}
			if len(meta) == 0 {
				c.JSON(http.StatusOK, gin.H{"room_id": slug})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"room_id": uuid.NewString()})
	}
}
