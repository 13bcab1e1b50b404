package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/toothdoctor-api/internal/app/bootstrap"
	appconfig "github.com/wolfman30/toothdoctor-api/internal/config"
	"github.com/wolfman30/toothdoctor-api/internal/seed"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	res, err := seed.Run(ctx, seed.NewPostgresTarget(pool), time.Now().UTC(), logger)
	if err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seeding completed",
		"doctors", len(res.DoctorIDs),
		"patients", len(res.PatientIDs),
		"services", len(res.ServiceIDs),
		"appointments", len(res.Appointments),
	)
}
