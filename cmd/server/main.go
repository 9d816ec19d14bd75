package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/schooltrack/fleet-tracking/internal/auth"
	"github.com/schooltrack/fleet-tracking/internal/config"
	"github.com/schooltrack/fleet-tracking/internal/db"
	"github.com/schooltrack/fleet-tracking/internal/handlers"
	"github.com/schooltrack/fleet-tracking/internal/logging"
	"github.com/schooltrack/fleet-tracking/internal/middleware"
	"github.com/schooltrack/fleet-tracking/internal/mqttbridge"
	"github.com/schooltrack/fleet-tracking/internal/stream"
	"github.com/schooltrack/fleet-tracking/internal/tracking"
)

func main() {
	configPath := ""
	flag.StringVar(&configPath, "c", "", "path to config file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	client, err := db.ConnectMongo(cfg.Mongo.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())
	log.Info("Connected to MongoDB")

	database := client.Database(cfg.Mongo.Database)
	schools := &db.MongoSchoolStore{Collection: database.Collection("schools")}
	vehicles := &db.MongoVehicleStore{Collection: database.Collection("vehicles")}
	telemetry := &db.MongoTelemetryStore{Collection: database.Collection("telemetry")}
	routes := &db.MongoRouteStore{Collection: database.Collection("routes")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	trackingService := tracking.NewService(schools, vehicles, telemetry, routes, cfg.Tracking.StaleAfter())
	publisher := stream.NewPublisher(trackingService, cfg.Stream.Interval())

	authService, err := auth.NewService(cfg.JWT.Secret, cfg.JWT.TokenExpiry())
	if err != nil {
		log.Fatalf("Failed to create auth service: %v", err)
	}
	authMw := middleware.NewAuthMiddleware(authService)

	var counterStore middleware.CounterStore = middleware.NewMemoryCounterStore()
	if cfg.RateLimit.RedisAddr != "" {
		counterStore = &middleware.RedisCounterStore{Client: redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})}
		log.WithField("addr", cfg.RateLimit.RedisAddr).Info("Using Redis rate limit store")
	}
	rateLimitMw := middleware.NewRateLimitMiddleware(counterStore)

	authHandler := handlers.NewAuthHandler(authService, users, schools)
	trackingHandler := handlers.NewTrackingHandler(trackingService)
	fleetHandler := handlers.NewFleetHandler(trackingService, publisher)
	vehicleHandler := handlers.NewVehicleHandler(schools, vehicles, routes)
	routeHandler := handlers.NewRouteHandler(schools, routes, vehicleHandler)

	manageFleet := authMw.RequirePermission("manage_fleet")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/auth/profile", authHandler.GetProfile)

	mux.HandleFunc("POST /api/tracking/{vehicleId}", trackingHandler.Report)
	mux.HandleFunc("GET /api/tracking/stream", fleetHandler.Stream)
	mux.HandleFunc("GET /api/tracking/{vehicleId}", trackingHandler.Latest)
	mux.HandleFunc("GET /api/fleet", fleetHandler.Snapshot)

	mux.HandleFunc("GET /api/vehicles", vehicleHandler.List)
	mux.Handle("POST /api/vehicles", manageFleet(http.HandlerFunc(vehicleHandler.Create)))
	mux.Handle("POST /api/vehicles/{vehicleId}/status", manageFleet(http.HandlerFunc(vehicleHandler.UpdateStatus)))
	mux.Handle("POST /api/vehicles/{vehicleId}/route", manageFleet(http.HandlerFunc(vehicleHandler.AssignRoute)))
	mux.HandleFunc("GET /api/routes", routeHandler.List)
	mux.Handle("POST /api/routes", manageFleet(http.HandlerFunc(routeHandler.Create)))

	var handler http.Handler = authMw.Authenticate(mux)
	if cfg.RateLimit.Enabled {
		handler = rateLimitMw.RateLimit(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())(handler)
	}

	if cfg.MQTT.Enabled {
		bridge := mqttbridge.New(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, cfg.MQTT.QoS, trackingService)
		if err := bridge.Start(); err != nil {
			// The HTTP ingest path still works without the broker.
			log.WithError(err).Error("MQTT bridge unavailable")
		} else {
			defer bridge.Stop()
		}
	}

	// Cancelling the root context tears down open SSE streams so Shutdown
	// can complete.
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddress(),
		Handler: handler,
		BaseContext: func(net.Listener) context.Context {
			return rootCtx
		},
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
