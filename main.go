package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/veripass/veripass/backend/reader-services/handlers"
	"github.com/veripass/veripass/backend/reader-services/internal/config"
	"github.com/veripass/veripass/backend/reader-services/internal/database"
	"github.com/veripass/veripass/backend/reader-services/internal/devices"
	"github.com/veripass/veripass/backend/reader-services/internal/diagnostics"
	"github.com/veripass/veripass/backend/reader-services/internal/events"
	"github.com/veripass/veripass/backend/reader-services/internal/oidc"
	readingsvc "github.com/veripass/veripass/backend/reader-services/internal/readings/service"
	"github.com/veripass/veripass/backend/reader-services/internal/sessions"
	"github.com/veripass/veripass/backend/reader-services/internal/storage"
	"github.com/veripass/veripass/backend/reader-services/pkg/logger"
	"github.com/veripass/veripass/backend/reader-services/pkg/metrics"
	"github.com/veripass/veripass/backend/reader-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v minio=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", os.Getenv("MINIO_ENDPOINT") != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	r.Use(gin.Logger(), gin.Recovery())

	// shared runtime services used by handlers and /ready
	var verifier middleware.Verifier
	var devicesSvc *devices.Service
	var sessionsSvc *sessions.Service

	// Connect to Redis early so the rate limiter and token blacklist can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := redisClient.Ping(context.Background()).Err(); err == nil {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		}
	}
	// The limiter is attached per route group (after device auth where that
	// applies) so authenticated traffic is keyed per device, not per IP.
	var rateLimiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			rateLimiter = middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			rateLimiter = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness returns 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		if sessionsSvc == nil {
			deps["storage"] = false
			ready = false
		} else {
			deps["storage"] = true
			deps["devices"] = (devicesSvc != nil)
		}

		if cfg.Keycloak.URL != "" {
			deps["oidc"] = verifier != nil
			if verifier == nil {
				ready = false
			}
		} else {
			deps["oidc"] = true
		}

		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = redisClient != nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
	})

	// OIDC verifier for operator endpoints
	ctx := context.Background()
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" && cfg.Keycloak.Realm != "" {
		issuer := strings.TrimRight(cfg.Keycloak.URL, "/") + "/realms/" + cfg.Keycloak.Realm
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure OIDC verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	// Prefer Redis for device refresh sessions when available
	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "devsession:"))
		logger.Infof("Using Redis for device session storage")
	}

	// MongoDB-backed services: device registry, readings log, Mongo sessions
	// as fallback. Retry with backoff to tolerate startup races.
	readingsSvc := readingsvc.NewMemoryService()
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := client.Database(cfg.MongoDB.Database)
			devicesSvc = devices.NewService(devices.NewMongoDeviceRepository(db.Collection("devices")))
			readingsSvc = readingsvc.NewMongoService(db.Collection("readings"))
			if sessionsSvc == nil {
				sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
			}
		}
	}

	// optional MinIO trace store for failed-read APDU dumps
	var traceStore *storage.TraceStore
	if os.Getenv("MINIO_ENDPOINT") != "" {
		ts, err := storage.NewTraceStore(storage.LoadMinIOConfig())
		if err != nil {
			logger.Warnf("trace store unavailable: %v", err)
		} else {
			traceStore = ts
		}
	}

	catalog, err := diagnostics.LoadCatalog(cfg.Diagnostics.AdviceCatalogPath)
	if err != nil {
		logger.Fatalf("failed to load advice catalog: %v", err)
	}

	hub := events.NewHub()

	if devicesSvc != nil && sessionsSvc != nil {
		authGroup := r.Group("/")
		if rateLimiter != nil {
			authGroup.Use(rateLimiter)
		}
		handlers.NewAuthHandler(cfg, devicesSvc, sessionsSvc).Register(authGroup)
	} else {
		logger.Warnf("auth handlers not registered because device/session services are unavailable")
	}
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	if rateLimiter != nil {
		api.Use(rateLimiter)
	}
	handlers.NewMRZHandler().Register(api)
	handlers.NewAccessHandler().Register(api)

	// readings are written by enrolled devices; require a device token when
	// a signing secret is configured. The limiter runs after device auth so
	// these routes are limited per device id.
	readingsGroup := r.Group("/api/v1")
	if cfg.JWT.Secret != "" {
		readingsGroup.Use(middleware.DeviceAuthMiddleware(cfg.JWT.Secret))
	} else {
		logger.Warnf("JWT_SECRET not set, readings endpoints are unauthenticated")
	}
	if rateLimiter != nil {
		readingsGroup.Use(rateLimiter)
	}
	handlers.NewReadingsHandler(readingsSvc, hub, traceStore).Register(readingsGroup)
	handlers.NewDiagnosticsHandler(catalog, readingsSvc).Register(api)
	handlers.NewFeedHandler(hub).Register(api)

	if verifier != nil {
		api.GET("/me", middleware.AuthMiddleware(verifier), func(c *gin.Context) {
			claims, _ := c.Get("claims")
			c.JSON(http.StatusOK, gin.H{"claims": claims})
		})
	} else {
		api.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "OIDC not configured"})
		})
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Config summary: mongo=%v redis=%v jwt_secret_set=%v enroll_key_set=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.JWT.Secret != "", cfg.Enrollment.Key != "")
	logger.Debugf("services: devices=%v sessions=%v verifier=%v traces=%v", devicesSvc != nil, sessionsSvc != nil, verifier != nil, traceStore != nil)
	logger.Infof("Starting reader service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
