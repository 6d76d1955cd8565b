package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brokerage-portal/internal/config"
	"brokerage-portal/internal/currency"
	"brokerage-portal/internal/handlers"
	"brokerage-portal/internal/indicator"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/ratelimit"
	"brokerage-portal/internal/scheduler"
	"brokerage-portal/internal/search"
	"brokerage-portal/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	appConfig    *config.Config
	searchClient *search.SearchClient
	rateService  *currency.Service
	leadLimiter  *ratelimit.KeyedLimiter
	sessions     *session.Manager
	appScheduler *scheduler.Scheduler
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Load configuration
	configPath := getEnv("CONFIG_PATH", "config/config.yaml")
	var err error
	appConfig, err = config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	// Initialize Meilisearch when a host is configured
	meilisearchHost := getEnvOrConfig(appConfig.Search.Meilisearch.Host, "MEILISEARCH_HOST", "")
	if meilisearchHost != "" {
		searchClient = search.NewSearchClient(
			meilisearchHost,
			getEnvOrConfig(appConfig.Search.Meilisearch.APIKey, "MEILISEARCH_KEY", ""),
			appConfig.Search.Meilisearch.Index,
		)
		if err := searchClient.InitIndex(); err != nil {
			log.Printf("Warning: Failed to initialize search index: %v", err)
		}
	}

	// Listing source and lead store
	st, err := openStores(appConfig, searchClient)
	if err != nil {
		log.Fatalf("Failed to open datasource: %v", err)
	}
	defer st.Close()

	// UF exchange rate: mindicador first, SII table as fallback
	rateService = newRateService(appConfig)

	fetcher := listing.NewFetcher(st.source, rateService)

	sessions = session.NewManager(
		fetcher,
		appConfig.Sessions.GetIdleTTL(),
		appConfig.Sessions.GetFetchTimeout(),
		appConfig.Sessions.MaxSessions,
	)

	leadLimiter = ratelimit.NewKeyedLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.RequestsPerDay,
		appConfig.RateLimit.GlobalPerHour,
		appConfig.RateLimit.Enabled,
	)
	log.Printf("Rate limiter initialized: %d req/min, %d req/hour, %d req/day (enabled: %v)",
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.RequestsPerDay,
		appConfig.RateLimit.Enabled,
	)

	// Scheduled jobs
	jobs := scheduler.Jobs{
		Rates:    rateService,
		Sweepers: []func() int{sessions.Sweep, leadLimiter.Prune},
	}
	canReindex := searchClient != nil && st.kind != datasourceMeilisearch
	if canReindex {
		jobs.Reindex = func(ctx context.Context) (int, error) {
			return searchClient.Reindex(ctx, st.source)
		}
	}
	appScheduler = scheduler.NewScheduler(appConfig.Scheduler, appConfig.Location(), jobs)
	if err := appScheduler.Start(); err != nil {
		log.Printf("Warning: Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	if appConfig.Logging.LogRequests {
		r.Use(gin.Logger())
	}

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	listingHandler := handlers.NewListingHandler(
		fetcher,
		rateService,
		handlers.NewSearchBackend(searchClient),
		appConfig.Datasource.GetQueryTimeout(),
	)
	leadHandler := handlers.NewLeadHandler(st.leads, appConfig.Leads)
	sessionHandler := handlers.NewSessionHandler(sessions)

	adminDeps := handlers.AdminDeps{
		Source:   st.source,
		Rates:    rateService,
		Leads:    st.leads,
		Limiter:  leadLimiter,
		Jobs:     appScheduler,
		Sessions: sessions.Len,
		Reindex:  canReindex,
	}
	if searchClient != nil {
		adminDeps.Facets = searchClient
	}
	adminHandler := handlers.NewAdminHandler(adminDeps)

	// Routes
	r.GET("/health", healthCheck)

	api := r.Group("/api")
	{
		api.GET("/propiedades", listingHandler.List(models.KindProperty))
		api.GET("/propiedades/:id", listingHandler.Get(models.KindProperty))
		api.GET("/proyectos", listingHandler.List(models.KindProject))
		api.GET("/proyectos/:id", listingHandler.Get(models.KindProject))
		api.GET("/uf", listingHandler.UF)
		api.GET("/regiones", listingHandler.Regions)
		api.GET("/buscar", listingHandler.Search)

		// Lead forms with rate limiting
		api.POST("/contacto", leadLimiter.Middleware(), leadHandler.Contact)
		api.POST("/referidos", leadLimiter.Middleware(), leadHandler.Referral)
	}

	sesiones := r.Group("/api/sesiones")
	{
		sesiones.POST("", sessionHandler.Create)
		sesiones.GET("/:id", sessionHandler.Get)
		sesiones.DELETE("/:id", sessionHandler.Delete)
		sesiones.PATCH("/:id/borrador", sessionHandler.EditDraft)
		sesiones.POST("/:id/buscar", sessionHandler.Submit)
		sesiones.PUT("/:id/orden", sessionHandler.SetSort)
		sesiones.DELETE("/:id/filtros", sessionHandler.Clear)
	}

	// Admin API routes (requires authentication in production)
	admin := r.Group("/api/admin")
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/ratelimit", adminHandler.GetRateLimitStats)
		admin.GET("/facets", adminHandler.GetFacets)
		admin.POST("/reindex", adminHandler.TriggerReindex)
		admin.POST("/uf/refresh", adminHandler.RefreshUF)
	}
	log.Println("Admin API routes registered at /api/admin/*")

	port := getEnv("PORT", appConfig.Server.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on port %s (datasource: %s)", port, st.kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

// newRateService builds the UF provider chain. Each provider has its own
// breaker.
func newRateService(cfg *config.Config) *currency.Service {
	er := cfg.ExchangeRate

	mindicador := &indicator.Guarded{
		Provider: indicator.NewMindicador(getEnvOrConfig(er.MindicadorURL, "MINDICADOR_URL", ""), er.GetTimeout()),
		Breaker:  indicator.NewCircuitBreaker(er.BreakerThreshold, er.GetBreakerReset()),
	}

	var loader indicator.PageLoader
	switch er.SIIRender {
	case "browser":
		loader = &indicator.BrowserLoader{
			ExecPath:  getEnvOrConfig(er.ChromePath, "CHROME_PATH", ""),
			UserAgent: cfg.UserAgent,
		}
	default:
		loader = &indicator.HTTPLoader{
			Client:    &http.Client{Timeout: er.GetTimeout()},
			UserAgent: cfg.UserAgent,
		}
	}
	sii := &indicator.Guarded{
		Provider: indicator.NewSII(er.SIIURL, loader, cfg.Location()),
		Breaker:  indicator.NewCircuitBreaker(er.BreakerThreshold, er.GetBreakerReset()),
	}

	chain := indicator.Chain{mindicador, sii}
	log.Printf("[UF] providers: %s (ttl %s)", chain.Name(), er.GetTTL())

	return currency.NewService(currency.NewMemoryCache(er.GetTTL()), chain, er.GetTimeout()*2)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}

func portString(port int) string {
	if port > 0 {
		return fmt.Sprintf("%d", port)
	}
	return ""
}
