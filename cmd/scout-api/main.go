// Command scout-api is the long-running companion to cmd/scout: it serves
// the digest-browsing HTTP API and live alert feed, loading digests from
// the same blob store cmd/scout persists into.
//
// Grounded on api/main.go: the teacher ships its API as a second binary
// alongside its streaming daemon, which this mirrors directly — cmd/scout
// runs one batch at a time and exits, cmd/scout-api stays up and serves
// what it wrote.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/api"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "configs/scout.yaml", "thresholds config file (YAML)")
		port       = flag.String("port", "", "API server port (overrides the config's api_port)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config %s: %v\n", *configPath, err)
		fmt.Println("using default configuration...")
		cfg = config.Default()
	}

	logger := config.NewLogger(cfg.Logging.Level)

	apiPort := cfg.APIPort
	if *port != "" {
		apiPort = *port
	}

	bs, err := store.NewLocalStore(cfg.Storage.RootDir)
	if err != nil {
		logger.Fatalf("cannot open blob store %s: %v", cfg.Storage.RootDir, err)
	}

	digestStore := api.NewDigestStore()
	go watchForNewDigests(bs, digestStore, logger)

	srv := api.NewServer(":"+apiPort, digestStore, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutting down digest API server...")
		cancel()
	}()

	logger.Infof("digest API listening on :%s", apiPort)
	if err := api.Serve(ctx, srv, logger); err != nil {
		logger.Errorf("server shutdown error: %v", err)
	}
}

// watchForNewDigests polls the results/digest namespace for today's digest
// and loads it into digestStore once cmd/scout has written it, rather than
// requiring the two processes to share any in-memory state.
func watchForNewDigests(bs *store.LocalStore, digestStore *api.DigestStore, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	seen := make(map[string]bool)
	for range ticker.C {
		loadTodaysDigest(bs, digestStore, seen, logger)
	}
}

func loadTodaysDigest(bs *store.LocalStore, digestStore *api.DigestStore, seen map[string]bool, logger *logrus.Logger) {
	key := fmt.Sprintf("results/digest/%s.json", time.Now().UTC().Format("2006-01-02"))
	if seen[key] {
		return
	}
	if !bs.Exists(context.Background(), key) {
		return
	}
	data, err := bs.Read(context.Background(), key)
	if err != nil {
		logger.Warnf("found digest at %s but could not read it: %v", key, err)
		return
	}
	var digest model.Digest
	if err := json.Unmarshal(data, &digest); err != nil {
		logger.Warnf("found digest at %s but could not parse it: %v", key, err)
		return
	}
	digestStore.Add(&digest)
	seen[key] = true
	logger.Infof("loaded digest %s (%d alerts)", digest.ReferenceDate.Format("2006-01-02"), digest.TotalAlerts)
}
