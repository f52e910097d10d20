package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"structure-name-eval/internal/api"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	workers := 0
	if v := strings.TrimSpace(os.Getenv("TG263_WORKERS")); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			workers = val
		}
	}

	maxSyncNames := 0
	if v := strings.TrimSpace(os.Getenv("TG263_MAX_SYNC_NAMES")); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			maxSyncNames = val
		}
	}

	var origins []string
	if v := strings.TrimSpace(os.Getenv("TG263_ALLOWED_ORIGINS")); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	cfg := api.Config{
		DBPath:         filepath.Join(dataDir, "structure-names.db"),
		AllowedOrigins: origins,
		SilentDB:       strings.EqualFold(strings.TrimSpace(os.Getenv("TG263_DB_SILENT")), "true"),
		Workers:        workers,
		MaxSyncNames:   maxSyncNames,
	}

	if override := strings.TrimSpace(os.Getenv("TG263_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2000"
	}

	logrus.Infof("starting structure-name-eval backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
