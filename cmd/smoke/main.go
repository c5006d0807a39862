package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/covita/internal/smoke"
	"github.com/okian/covita/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers     = 4
	defaultTimeout     = 60 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		metrics = flag.String("metrics", "", "Comma separated metrics to check (default: all)")
		regions = flag.String("regions", "", "Comma separated regions to check (default: every region)")
		workers = flag.Int("workers", defaultWorkers, "Number of metrics checked concurrently")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &smoke.Config{
		BaseURL: strings.TrimRight(*baseURL, "/"),
		Metrics: splitList(*metrics),
		Regions: splitList(*regions),
		Workers: *workers,
		Timeout: *timeout,
		Verbose: *verbose,
	}

	if _, err := smoke.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Smoke check failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
