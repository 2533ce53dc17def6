// Command probe connects to a running server, plays a short scenario on one
// hub and prints every envelope it received.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	hub := flag.String("hub", "dashboard", "Hub to probe: dashboard or chat")
	checkHealth := flag.Bool("health", true, "Query the gRPC health service first")
	flag.Parse()

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *checkHealth {
		status, err := health(ctx, cfg, *hub)
		if err != nil {
			return err
		}
		header(cfg, fmt.Sprintf("%s is %s", *hub, status))
	}

	probe, err := Dial(ctx, strings.TrimSuffix(cfg.ServerURL, "/")+"/"+*hub, cfg.Timeout)
	if err != nil {
		return err
	}
	defer probe.Close()

	switch *hub {
	case "dashboard":
		err = RunDashboard(probe)
	case "chat":
		err = RunChat(probe, cfg.Name)
	default:
		err = fmt.Errorf("unknown hub %q", *hub)
	}

	header(cfg, fmt.Sprintf("%d envelopes received", len(probe.Received())))
	Render(os.Stdout, probe.Received(), cfg.Colours)
	return err
}

func health(ctx context.Context, cfg Config, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(cfg.AdminAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health client: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check of %s: %w", service, err)
	}
	return resp.GetStatus(), nil
}

func header(cfg Config, text string) {
	line := fmt.Sprintf("  ====== %s ======", text)
	if cfg.Colours {
		line = color.New(color.BgBlack, color.FgGreen).Render(line)
	}
	fmt.Println(line)
}
