package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"expengine/internal/config"
	"expengine/internal/db"
	"expengine/internal/experiment"
	"expengine/internal/http/handlers"
	appmw "expengine/internal/http/middleware"
	"expengine/internal/memstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var (
		registry    experiment.ExperimentRegistry
		assignments experiment.AssignmentStore
		metrics     experiment.MetricsStore
		admin       handlers.ExperimentAdmin
		keys        appmw.APIKeyLookup
	)

	if cfg.DatabaseURL != "" {
		gormDB, err := db.Connect(cfg)
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}

		if err := db.EnsureBootstrapAPIKey(gormDB, cfg); err != nil {
			log.Fatalf("failed to ensure bootstrap API key: %v", err)
		}
		if cfg.SeedDemoData {
			if err := db.EnsureSeedExperiments(gormDB); err != nil {
				log.Printf("warning: failed to seed demo experiment: %v", err)
			}
		}

		expStore := db.NewExperimentStore(gormDB)
		registry = expStore
		admin = expStore
		assignments = db.NewAssignmentStore(gormDB)
		metrics = db.NewMetricStore(gormDB)
		keys = db.NewAPIKeyStore(gormDB)
	} else {
		log.Printf("APP_DATABASE_URL not set, running with in-memory stores (demo mode)")

		store := memstore.New()
		if cfg.SeedDemoData {
			if err := store.Create(db.SeedExperiment()); err != nil {
				log.Printf("warning: failed to seed demo experiment: %v", err)
			}
		}

		registry = store
		admin = store
		assignments = store
		metrics = store
		keys = appmw.StaticKey(cfg.InternalAPIKey)
	}

	assignmentSvc := experiment.NewAssignmentService(registry, assignments)
	resolver := experiment.NewAlgorithmResolver(registry, assignmentSvc, cfg.DefaultAlgorithm)
	recorder := experiment.NewMetricsRecorder(registry, metrics)
	aggregator := experiment.NewDashboardAggregator(registry, assignments, metrics)
	simulator := experiment.NewPerformanceSimulator()

	handlers.InitPrometheusMetrics()

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.GET("/v1/resolve", handlers.ResolveAlgorithm(resolver))
	r.POST("/v1/metrics", appmw.BearerAuth(keys)(handlers.RecordMetric(recorder)))
	r.GET("/v1/dashboard", handlers.DashboardSummary(aggregator, cfg))

	r.GET("/v1/experiments", handlers.ListExperiments(registry))
	r.POST("/v1/experiments", handlers.CreateExperiment(registry, admin))
	r.GET("/v1/experiments/{id}", handlers.GetExperiment(registry))
	r.POST("/v1/experiments/{id}/status", handlers.SetExperimentStatus(registry, admin))
	r.GET("/v1/experiments/{id}/performance", handlers.ExperimentPerformance(registry, simulator))

	r.GET("/v1/prometheus", handlers.EngineMetricsHandler())

	handler := handlers.RequestLogger(r.Handler)

	log.Printf("expengine listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
