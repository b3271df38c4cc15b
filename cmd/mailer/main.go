// Command mailer is a small CLI wrapping the outbound SMTP submission
// client: send one message, verify connectivity to the configured relay,
// or serve a Prometheus /metrics endpoint. It mirrors the teacher's
// subcommand-dispatch style (flag.NewFlagSet per verb, a shared --config
// flag) trimmed to this package's much smaller surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sendbridge/mailer/internal/config"
	"github.com/sendbridge/mailer/internal/logging"
	"github.com/sendbridge/mailer/internal/mailer"
	"github.com/sendbridge/mailer/internal/metrics"
	"github.com/sendbridge/mailer/internal/observability"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	configPath := ""

	switch os.Args[1] {
	case "send":
		sendCmd := flag.NewFlagSet("send", flag.ExitOnError)
		sendCmd.StringVar(&configPath, "config", "config/mailer.yaml", "config file path")
		requestPath := sendCmd.String("request", "", "path to a JSON MailRequest (default: read from stdin)")
		sendCmd.Parse(os.Args[2:])
		runSend(configPath, *requestPath)
	case "verify":
		verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
		verifyCmd.StringVar(&configPath, "config", "config/mailer.yaml", "config file path")
		verifyCmd.Parse(os.Args[2:])
		runVerify(configPath)
	case "metrics":
		metricsCmd := flag.NewFlagSet("metrics", flag.ExitOnError)
		metricsCmd.StringVar(&configPath, "config", "config/mailer.yaml", "config file path")
		addr := metricsCmd.String("addr", ":9477", "address to serve /metrics on")
		metricsCmd.Parse(os.Args[2:])
		runMetricsServer(configPath, *addr)
	case "version":
		fmt.Printf("mailer %s\n", Version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("mailer - outbound SMTP submission client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mailer send    [--config path] [--request path]  Send one message (JSON MailRequest on stdin by default)")
	fmt.Println("  mailer verify  [--config path]                   Probe the configured relay and report reachability")
	fmt.Println("  mailer metrics [--config path] [--addr addr]     Serve a Prometheus /metrics endpoint")
	fmt.Println("  mailer version                                   Print version")
}

func loadConfigOrExit(configPath string) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error validating config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := logging.New(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		CustomFields: cfg.Logging.CustomFields,
		Destination:  cfg.Logging.Destination,
	})
	slog.SetDefault(logger)
	if cfg.SecureForced() {
		logger.Warn("port 465 requires implicit TLS, forcing secure=true", "port", cfg.Port)
	}
	return logger
}

func runSend(configPath, requestPath string) {
	cfg := loadConfigOrExit(configPath)
	logger := newLogger(cfg)

	shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracingConfig{
		ServiceName: "mailer",
		SampleRate:  1.0,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing tracer: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("tracer shutdown", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	sink := metrics.NewPrometheusSink(reg)

	m, err := mailer.New(*cfg, logger, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error constructing mailer: %v\n", err)
		os.Exit(1)
	}

	var raw []byte
	if requestPath != "" {
		raw, err = os.ReadFile(requestPath)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		os.Exit(1)
	}

	var req mailer.MailRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing request JSON: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout()*time.Duration(cfg.RetryAttempts+1))
	defer cancel()

	result, sendErr := m.SendMail(ctx, req)

	encoded, jsonErr := json.MarshalIndent(result, "", "  ")
	if jsonErr != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", jsonErr)
		os.Exit(1)
	}
	fmt.Println(string(encoded))

	if sendErr != nil {
		os.Exit(1)
	}
}

func runVerify(configPath string) {
	cfg := loadConfigOrExit(configPath)
	logger := newLogger(cfg)

	m, err := mailer.New(*cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error constructing mailer: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	if m.VerifyConnection(ctx) {
		fmt.Printf("OK: %s:%d is reachable\n", cfg.Host, cfg.Port)
		return
	}
	fmt.Fprintf(os.Stderr, "FAIL: %s:%d is not reachable\n", cfg.Host, cfg.Port)
	os.Exit(1)
}

func runMetricsServer(configPath, addr string) {
	cfg := loadConfigOrExit(configPath)
	logger := newLogger(cfg)

	reg := prometheus.NewRegistry()
	_ = metrics.NewPrometheusSink(reg) // registers the mailer collectors; a real sender would share this with mailer.New

	srv := observability.NewMetricsServer(addr, reg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("metrics server error", "error", err)
			os.Exit(1)
		}
	}
}
