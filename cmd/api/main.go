package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gatehouse.org/internal/admin"
	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/database"
	"gatehouse.org/internal/httpapi"
	"gatehouse.org/internal/obs"
	"gatehouse.org/internal/security"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("GATEHOUSE_AUTH_SECRET")
	if secret == "" {
		log.Fatal("GATEHOUSE_AUTH_SECRET is required")
	}

	dsn := os.Getenv("GATEHOUSE_PG_DSN")
	if dsn == "" {
		log.Fatal("GATEHOUSE_PG_DSN is required")
	}
	db, err := database.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := admin.NewPG(db)
	recorder := audit.NewPG(db)
	attempts := security.NewAttemptPG(db)
	limiter := security.NewLimiter()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Sweep(time.Hour)
		}
	}()

	creds, err := auth.NewCredentialStore(users)
	if err != nil {
		log.Fatalf("credentials: %v", err)
	}

	tokenOpts := []auth.TokenOption{auth.WithIssuer("gatehouse")}
	if v := os.Getenv("GATEHOUSE_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("parse GATEHOUSE_TOKEN_TTL: %v", err)
		}
		tokenOpts = append(tokenOpts, auth.WithTTL(ttl))
	}
	tokens, err := auth.NewTokenService([]byte(secret), tokenOpts...)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	authSvc, err := auth.NewService(users, recorder, creds, tokens,
		auth.WithLimiter(limiter),
		auth.WithAttemptStore(attempts),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	adminSvc, err := admin.NewService(users, recorder, creds)
	if err != nil {
		log.Fatalf("admin service: %v", err)
	}

	api := httpapi.New(authSvc, adminSvc, db, version)

	addr := os.Getenv("GATEHOUSE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// gRPC health endpoint for infra probes that speak grpc_health_v1.
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	grpcAddr := os.Getenv("GATEHOUSE_GRPC_ADDR")
	if grpcAddr == "" {
		grpcAddr = ":8081"
	}
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("listen grpc: %v", err)
	}

	log.Printf("Starting gatehouse-api %s on %s (grpc health on %s)", version, srv.Addr, grpcAddr)

	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcSrv.GracefulStop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
