// mvnet is a command-line driver for the wire engine: it builds a
// client.Client (or a batch.Pool for -count > 1) from flags or a config
// file and fires the configured request(s) at a target URL, logging the
// final status and the elapsed time.
//
// Startup sequence:
//  1. Initialise the logger.
//  2. Load configuration (JSON/YAML file or defaults).
//  3. Load the proxy pool, if one was given.
//  4. Initialise metrics.
//  5. Build the client (or batch pool) and send the request(s).
//  6. Log the elapsed time and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilmv/mvnet/batch"
	"github.com/soheilmv/mvnet/client"
	"github.com/soheilmv/mvnet/config"
	"github.com/soheilmv/mvnet/logger"
	"github.com/soheilmv/mvnet/metrics"
	"github.com/soheilmv/mvnet/proxydial"
)

func main() {
	// ── Flags ──────────────────────────────────────────────────────────────
	configFile := flag.String("config", "", "Path to a JSON/YAML config file (optional; uses defaults if omitted)")
	proxyURL := flag.String("proxy", "", "Proxy URL (http://, socks4://, socks4a://, socks5://, ap://); empty means direct")
	proxyFile := flag.String("proxies", "", "Newline-delimited proxy list file; round-robins across them instead of -proxy")
	targetURL := flag.String("url", "", "Target URL to request")
	method := flag.String("method", "GET", "HTTP method")
	count := flag.Int("count", 1, "Number of times to repeat the request, fanned out across -workers")
	workers := flag.Int("workers", 4, "Worker count when -count > 1")
	flag.Parse()

	log := logger.New(logger.LevelInfo)
	log.Info("mvnet starting up")

	// ── Configuration ──────────────────────────────────────────────────────
	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Errorf("failed to load config from %q: %v", *configFile, err)
			os.Exit(1)
		}
		log.Infof("configuration loaded from %q", *configFile)
	} else {
		cfg = config.Default()
		log.Info("using default configuration")
	}

	if *targetURL == "" {
		log.Error("missing required -url flag")
		os.Exit(1)
	}

	// ── Proxy pool ─────────────────────────────────────────────────────────
	var pool *proxydial.Pool
	if *proxyFile != "" {
		pool = &proxydial.Pool{}
		if err := pool.LoadProxies(*proxyFile); err != nil {
			log.Errorf("failed to load proxies from %q: %v", *proxyFile, err)
			os.Exit(1)
		}
		log.Infof("loaded %d proxies from %q", pool.Count(), *proxyFile)
	}

	// ── Metrics ────────────────────────────────────────────────────────────
	m := metrics.New(nil)

	clientCfg := client.Config{
		Policy:    cfg,
		Proxy:     *proxyURL,
		ProxyPool: pool,
		Logger:    log,
		Metrics:   m,
	}

	// ── Graceful cancellation ──────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Println() // newline after ^C
		log.Infof("received signal %s; cancelling in-flight requests", sig)
		cancel()
	}()

	start := time.Now()
	if *count <= 1 {
		runOnce(ctx, log, clientCfg, *method, *targetURL)
	} else {
		runBatch(ctx, log, clientCfg, *method, *targetURL, *count, *workers)
	}

	log.Infof("done in %s", time.Since(start))
}

func runOnce(ctx context.Context, log *logger.Logger, cfg client.Config, method, url string) {
	c, err := client.New(cfg)
	if err != nil {
		log.Errorf("client.New: %v", err)
		os.Exit(1)
	}
	defer c.Close()

	resp, err := c.Send(ctx, client.Request{Method: method, URL: url})
	if err != nil {
		log.Errorf("request failed: %v", err)
		os.Exit(1)
	}
	log.Infof("%s %s -> %d (%d bytes, %d redirects)", method, url, resp.StatusCode, len(resp.Body), resp.RedirectCount)
}

func runBatch(ctx context.Context, log *logger.Logger, cfg client.Config, method, url string, count, workers int) {
	pool, err := batch.NewFromConfig(workers, cfg)
	if err != nil {
		log.Errorf("batch.NewFromConfig: %v", err)
		os.Exit(1)
	}
	pool.Start()
	defer pool.Stop()

	requests := make([]client.Request, count)
	for i := range requests {
		requests[i] = client.Request{Method: method, URL: url}
	}

	results := pool.Send(ctx, requests)
	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		ok++
	}
	log.Infof("%s %s x%d across %d workers -> %d ok, %d failed", method, url, count, workers, ok, failed)
}
