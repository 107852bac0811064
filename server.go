package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/mailer"
	"bitbucket.org/mmdatafocus/camps_backend/middlewares"
	"bitbucket.org/mmdatafocus/camps_backend/models"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"bitbucket.org/mmdatafocus/camps_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = "8080"

var tracer = otel.Tracer("camps-backend")

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	// Root span per request; otelgorm hangs query spans off it.
	r.Use(func(c *gin.Context) {
		spanName := c.FullPath()
		if spanName == "" {
			spanName = c.Request.URL.Path
		}
		ctx, span := tracer.Start(c.Request.Context(), spanName,
			trace.WithSpanKind(trace.SpanKindServer))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.End()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Mail relay client (optional; Email outbox rows fail with backoff until configured).
	var mailClient *mailer.Client
	if mailer.Enabled() {
		var err error
		mailClient, err = mailer.NewClient()
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "mailer"}).Warn("mail relay disabled: " + err.Error())
			mailClient = nil
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "mailer"}).Warn("MAIL_API_BASE_URL/MAIL_API_KEY not set; email delivery disabled")
	}

	// Start outbox dispatcher (delivers AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger, mailClient).Run(dispatcherCtx)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func registerRoutes(r *gin.Engine) {
	// Public: session login and the self-registration flow.
	r.POST("/login", loginHandler())
	r.GET("/register/:token", resolveRegistrationLinkHandler())
	r.POST("/register/:token", publicRegistrationHandler())

	api := r.Group("/", middlewares.RequireSession())
	{
		api.POST("/logout", logoutHandler())
		api.POST("/change-password", changePasswordHandler())

		api.GET("/camps", listCampsHandler())
		api.POST("/camps", createCampHandler())
		api.GET("/camps/:id", getCampHandler())
		api.PUT("/camps/:id", updateCampHandler())
		api.DELETE("/camps/:id", deleteCampHandler())
		api.PATCH("/camps/:id/active", toggleActiveCampHandler())

		api.GET("/churches", listChurchesHandler())
		api.POST("/churches", createChurchHandler())
		api.GET("/churches/:id", getChurchHandler())
		api.PUT("/churches/:id", updateChurchHandler())
		api.DELETE("/churches/:id", deleteChurchHandler())

		api.GET("/categories", listCategoriesHandler())
		api.POST("/categories", createCategoryHandler())
		api.GET("/categories/:id", getCategoryHandler())
		api.PUT("/categories/:id", updateCategoryHandler())
		api.DELETE("/categories/:id", deleteCategoryHandler())

		api.GET("/custom-fields", listCustomFieldsHandler())
		api.POST("/custom-fields", createCustomFieldHandler())
		api.GET("/custom-fields/:id", getCustomFieldHandler())
		api.PUT("/custom-fields/:id", updateCustomFieldHandler())
		api.DELETE("/custom-fields/:id", deleteCustomFieldHandler())

		api.GET("/registrations", paginateRegistrationsHandler())
		api.POST("/registrations", createRegistrationHandler())
		api.GET("/registrations/lookup", lookupCamperCodeHandler())
		api.GET("/registrations/:id", getRegistrationHandler())
		api.PUT("/registrations/:id", updateRegistrationHandler())
		api.DELETE("/registrations/:id", deleteRegistrationHandler())
		api.PATCH("/registrations/:id/status", updateRegistrationStatusHandler())
		api.POST("/registrations/:id/send-id-card", sendIdCardHandler())

		api.GET("/registration-links", listRegistrationLinksHandler())
		api.POST("/registration-links", createRegistrationLinkHandler())
		api.GET("/registration-links/:id", getRegistrationLinkHandler())
		api.PUT("/registration-links/:id", updateRegistrationLinkHandler())
		api.DELETE("/registration-links/:id", deleteRegistrationLinkHandler())
		api.PATCH("/registration-links/:id/active", toggleActiveRegistrationLinkHandler())

		api.GET("/payments", paginatePaymentsHandler())
		api.POST("/payments", createPaymentHandler())
		api.GET("/payments/:id", getPaymentHandler())
		api.PUT("/payments/:id", updatePaymentHandler())
		api.DELETE("/payments/:id", deletePaymentHandler())

		api.GET("/pledges", paginatePledgesHandler())
		api.POST("/pledges", createPledgeHandler())
		api.GET("/pledges/:id", getPledgeHandler())
		api.PUT("/pledges/:id", updatePledgeHandler())
		api.DELETE("/pledges/:id", deletePledgeHandler())
		api.POST("/pledges/:id/fulfillments", addPledgeFulfillmentHandler())
		api.DELETE("/pledges/:id/fulfillments/:fulfillmentId", deletePledgeFulfillmentHandler())

		api.GET("/purchases", paginatePurchasesHandler())
		api.POST("/purchases", createPurchaseHandler())
		api.GET("/purchases/:id", getPurchaseHandler())
		api.PUT("/purchases/:id", updatePurchaseHandler())
		api.DELETE("/purchases/:id", deletePurchaseHandler())

		api.GET("/inventory-items", listInventoryItemsHandler())
		api.POST("/inventory-items", createInventoryItemHandler())
		api.GET("/inventory-items/:id", getInventoryItemHandler())
		api.PUT("/inventory-items/:id", updateInventoryItemHandler())
		api.DELETE("/inventory-items/:id", deleteInventoryItemHandler())
		api.PATCH("/inventory-items/:id/quantity", adjustInventoryQuantityHandler())

		api.GET("/rooms", listRoomsHandler())
		api.POST("/rooms", createRoomHandler())
		api.GET("/rooms/:id", getRoomHandler())
		api.PUT("/rooms/:id", updateRoomHandler())
		api.DELETE("/rooms/:id", deleteRoomHandler())
		api.POST("/rooms/:id/allocations", allocateRoomHandler())
		api.DELETE("/rooms/:id/allocations/:allocationId", deallocateRoomHandler())

		api.GET("/reports/registration-summary", registrationSummaryHandler())
		api.GET("/reports/payments/export", exportPaymentsHandler())
		api.GET("/reports/pledges/export", exportPledgesHandler())
		api.GET("/reports/purchases/export", exportPurchasesHandler())

		api.POST("/attachments", uploadAttachmentHandler())
		api.GET("/attachments", listAttachmentsHandler())
		api.DELETE("/attachments/:id", deleteAttachmentHandler())
	}

	// Check-in kiosks authenticate with a long-lived Bearer JWT instead of
	// a console session.
	kiosk := r.Group("/kiosk", middlewares.AuthMiddleware(), middlewares.RequireKiosk())
	{
		kiosk.GET("/registrations/lookup", lookupCamperCodeHandler())
	}

	admin := r.Group("/", middlewares.RequireSession(), middlewares.RequireAdmin())
	{
		admin.GET("/users", listUsersHandler())
		admin.POST("/users", createUserHandler())
		admin.POST("/internal/ops/kiosk-token", issueKioskTokenHandler())
		// Ops tooling: replay outbox rows that were marked DEAD/FAILED.
		admin.POST("/internal/ops/outbox/replay", outboxReplayHandler())
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
