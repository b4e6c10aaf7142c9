// Package main provides the tracebind-sim CLI tool for simulating traces and
// logs through tracebind.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/tracebind/cmd/tracebind-sim/engine"
	"github.com/arloliu/tracebind/cmd/tracebind-sim/scenario"
	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	mode := os.Args[1]
	switch mode {
	case "quick":
		runQuickMode(os.Args[2:])
	case "run":
		runContinuousMode(os.Args[2:])
	case "list":
		listScenarios()
	case "-h", "--help", "help":
		printUsage()
	default:
		_, _ = fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tracebind-sim - trace/log simulator

Usage:
  tracebind-sim <mode> [flags]

Modes:
  quick   Send traces immediately for quick visualization
  run     Simulate real-world timing continuously
  list    List available scenarios

Quick Mode Flags:
  --endpoint     OTLP endpoint (default: localhost:4317)
  --http         Use HTTP instead of gRPC
  --insecure     Skip TLS verification (default: true)
  --scenario     Scenario name (default: payment)
  --count        Number of traces to send (default: 10)
  --logs         Enable log generation
  --exporter     otlp, console or none (default: otlp)
  --no-errors    Disable error simulation
  --verbosity    SDK diagnostic log verbosity (default: 0)
  --service-name Override service name

Continuous Mode Flags:
  --endpoint     OTLP endpoint (default: localhost:4317)
  --http         Use HTTP instead of gRPC
  --insecure     Skip TLS verification (default: true)
  --scenario     Scenario name (default: payment)
  --duration     Total simulation time (default: 1m)
  --rate         Traces per second (default: 1)
  --jitter       Timing variation percentage (default: 20)
  --logs         Enable log generation
  --exporter     otlp, console or none (default: otlp)
  --no-errors    Disable error simulation
  --verbosity    SDK diagnostic log verbosity (default: 0)
  --service-name Override service name

Environment Variables:
  OTEL_EXPORTER_OTLP_ENDPOINT   OTLP endpoint
  OTEL_EXPORTER_OTLP_PROTOCOL   grpc or http
  OTEL_EXPORTER_OTLP_INSECURE   Skip TLS verification
  OTEL_SERVICE_NAME             Default service name
  TRACEBIND_SIM_EXPORTER        Exporter type
  TRACEBIND_SIM_VERBOSITY       SDK diagnostic log verbosity

Examples:
  tracebind-sim quick --scenario payment --count 5
  tracebind-sim quick --scenario payment --exporter console --count 1
  tracebind-sim run --scenario health-check --duration 5m --rate 10
  tracebind-sim list`)
}

func runQuickMode(args []string) {
	cfg := newConfig()
	fs := flag.NewFlagSet("quick", flag.ExitOnError)
	cfg.bindCommonFlags(fs)
	fs.IntVar(&cfg.Count, "count", cfg.Count, "Number of traces to send")

	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return
	}

	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := executeQuick(ctx, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func runContinuousMode(args []string) {
	cfg := newConfig()
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfg.bindCommonFlags(fs)

	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Total simulation time")
	fs.Float64Var(&cfg.Rate, "rate", cfg.Rate, "Traces per second")
	fs.IntVar(&cfg.Jitter, "jitter", cfg.Jitter, "Timing variation percentage")

	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return
	}

	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := executeContinuous(ctx, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func listScenarios() {
	fmt.Println(`Available scenarios:

  payment      Online payment system flow
               - 6 services, 8 spans (gateway → payment → fraud/processor)
               - Mix of gRPC, HTTP and NATS messaging
               - Tenant and payment correlation, parallel fraud/charge

  health-check Simple connectivity test
               - Single HTTP request span
               - Useful for verifying OTLP connection`)
}

// executeQuick sends traces immediately.
func executeQuick(ctx context.Context, cfg *Config) error {
	s, err := loadScenario(cfg)
	if err != nil {
		return err
	}

	// No jitter in quick mode.
	eng, err := newEngine(ctx, cfg, s, 0)
	if err != nil {
		return err
	}
	defer shutdown(eng)

	fmt.Printf("Sending %d traces to %s (scenario: %s)\n", cfg.Count, cfg.Endpoint, s.Name)

	for i := range cfg.Count {
		select {
		case <-ctx.Done():
			fmt.Printf("\nInterrupted after %d traces\n", i)
			return nil
		default:
		}

		if err := eng.GenerateTrace(ctx); err != nil {
			return fmt.Errorf("failed to generate trace %d: %w", i+1, err)
		}
		fmt.Printf("Trace %d/%d sent\n", i+1, cfg.Count)
	}
	fmt.Println("Done!")

	return nil
}

// executeContinuous runs traces at a steady rate for a duration.
func executeContinuous(ctx context.Context, cfg *Config) error {
	s, err := loadScenario(cfg)
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg, s, cfg.Jitter)
	if err != nil {
		return err
	}
	defer shutdown(eng)

	fmt.Printf("Running %s scenario for %v at %.1f traces/sec\n", s.Name, cfg.Duration, cfg.Rate)

	interval := time.Duration(float64(time.Second) / cfg.Rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.Now().Add(cfg.Duration)
	traceCount := 0

	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\nInterrupted after %d traces\n", traceCount)
			return nil
		case <-ticker.C:
			if time.Now().After(deadline) {
				fmt.Printf("\nCompleted: sent %d traces\n", traceCount)
				return nil
			}

			if err := eng.GenerateTrace(ctx); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to generate trace: %v\n", err)
				continue
			}
			traceCount++
		}
	}
}

func loadScenario(cfg *Config) (*scenario.Scenario, error) {
	// Try custom YAML file first
	if cfg.ScenarioFile != "" {
		return scenario.LoadFromFile(cfg.ScenarioFile)
	}

	// Look up embedded scenario
	s, ok := scenario.Get(cfg.Scenario)
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s (use 'tracebind-sim list' to see available scenarios)", cfg.Scenario)
	}

	return s, nil
}

func newEngine(ctx context.Context, cfg *Config, s *scenario.Scenario, jitter int) (*engine.Engine, error) {
	installDiagnostics(cfg.Verbosity)

	eng, err := engine.New(ctx, engine.Config{
		Endpoint:      cfg.Endpoint,
		UseHTTP:       cfg.UseHTTP,
		Insecure:      cfg.IsInsecure(),
		ServiceName:   cfg.ServiceName,
		EnableLogs:    cfg.EnableLogs,
		JitterPct:     jitter,
		Exporter:      cfg.Exporter,
		DisableErrors: cfg.DisableErrors,
	}, s)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return eng, nil
}

// shutdown flushes pending telemetry. It does not use the run context,
// which is already canceled after an interrupt.
func shutdown(eng *engine.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := eng.Shutdown(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// installDiagnostics routes SDK internal logs and export errors to stderr.
func installDiagnostics(verbosity int) {
	stdr.SetVerbosity(verbosity)
	otel.SetLogger(stdr.New(log.New(os.Stderr, "tracebind-sim: ", log.LstdFlags)))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		_, _ = fmt.Fprintf(os.Stderr, "Export error: %v\n", err)
	}))
}
