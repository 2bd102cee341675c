// Command frontdesk is the main entry point for the Frontdesk appointment
// assistant. It runs either an interactive chat session (-mode chat) or an
// MCP stdio server exposing the booking tools to an external voice runtime
// (-mode mcp).
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/frontdesk/internal/agent"
	"github.com/MrWong99/frontdesk/internal/booking"
	"github.com/MrWong99/frontdesk/internal/calendar"
	"github.com/MrWong99/frontdesk/internal/capture"
	"github.com/MrWong99/frontdesk/internal/config"
	"github.com/MrWong99/frontdesk/internal/health"
	"github.com/MrWong99/frontdesk/internal/mcpserver"
	"github.com/MrWong99/frontdesk/internal/notify"
	"github.com/MrWong99/frontdesk/internal/observe"
	frontdesktools "github.com/MrWong99/frontdesk/internal/tools/frontdesk"
	"github.com/MrWong99/frontdesk/pkg/provider/llm"
	"github.com/MrWong99/frontdesk/pkg/provider/llm/anyllm"
)

// version is stamped via -ldflags at release time.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	mode := flag.String("mode", "chat", `run mode: "chat" for an interactive session, "mcp" for an MCP stdio server`)
	flag.Parse()

	if *mode != "chat" && *mode != "mcp" {
		fmt.Fprintf(os.Stderr, "frontdesk: unknown mode %q; valid modes: chat, mcp\n", *mode)
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "frontdesk: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "frontdesk: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("frontdesk starting",
		"config", *configPath,
		"mode", *mode,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "frontdesk",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Timezone and language ─────────────────────────────────────────────────
	tz := time.Local
	if cfg.Agent.Timezone != "" {
		tz, err = time.LoadLocation(cfg.Agent.Timezone)
		if err != nil {
			slog.Error("invalid timezone", "timezone", cfg.Agent.Timezone, "err", err)
			return 1
		}
	}
	lang := notify.LanguageGerman
	if cfg.Agent.Language != "" {
		lang = notify.Language(cfg.Agent.Language)
	}

	// ── Calendar ──────────────────────────────────────────────────────────────
	cal, err := buildCalendar(cfg, tz)
	if err != nil {
		slog.Error("failed to build calendar", "err", err)
		return 1
	}
	if err := cal.Initialize(ctx); err != nil {
		slog.Error("calendar initialisation failed", "err", err)
		return 1
	}

	// ── SMS sender ────────────────────────────────────────────────────────────
	notifier, err := buildNotifier(cfg)
	if err != nil {
		slog.Error("failed to build sms sender", "err", err)
		return 1
	}

	// ── Booking protocol ──────────────────────────────────────────────────────
	bookingCfg := booking.Config{
		Calendar: cal,
		Notifier: notifier,
		Timezone: tz,
		Language: lang,
		Metrics:  metrics,
	}
	if *mode == "chat" {
		bookingCfg.Acknowledge = func(context.Context) {
			fmt.Println("assistant> One moment, please, I am checking the calendar…")
		}
	}
	protocol, err := booking.New(bookingCfg)
	if err != nil {
		slog.Error("failed to build booking protocol", "err", err)
		return 1
	}

	// In MCP mode stdout belongs to the transport, so the summary box stays off.
	if *mode == "chat" {
		printStartupSummary(cfg, *mode)
	}

	// ── HTTP endpoint: health + metrics ───────────────────────────────────────
	g, ctx := errgroup.WithContext(ctx)
	if cfg.Server.ListenAddr != "" {
		srv := httpServer(cfg.Server.ListenAddr, cal, metrics)
		g.Go(func() error {
			slog.Info("http endpoint listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	// ── Run mode ──────────────────────────────────────────────────────────────
	switch *mode {
	case "mcp":
		g.Go(func() error { return runMCP(ctx, protocol, cfg, metrics) })
	default:
		g.Go(func() error { return runChat(ctx, protocol, cfg, tz, lang, metrics) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runChat drives an interactive terminal session against the configured LLM.
func runChat(ctx context.Context, protocol *booking.Protocol, cfg *config.Config, tz *time.Location, lang notify.Language, metrics *observe.Metrics) error {
	provider, err := buildLLM(cfg.Providers.LLM)
	if err != nil {
		return fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}

	session, err := agent.New(agent.Config{
		LLM:          provider,
		Booking:      protocol,
		Timezone:     tz,
		Language:     lang,
		CountryCode:  cfg.Agent.CountryCode,
		Greeting:     cfg.Agent.Greeting,
		MaxToolSteps: cfg.Agent.MaxToolSteps,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Println("assistant>", session.Greeting())
	fmt.Println(`(type "exit" to quit)`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		reply, err := session.HandleTurn(ctx, line)
		if err != nil {
			slog.Error("turn failed", "err", err)
			fmt.Println("assistant> I am sorry, something went wrong on my side. Could you say that again?")
			continue
		}
		fmt.Println("assistant>", reply)
	}
}

// runMCP serves the booking tool suite over MCP stdio.
func runMCP(ctx context.Context, protocol *booking.Protocol, cfg *config.Config, metrics *observe.Metrics) error {
	countryCode := cfg.Agent.CountryCode
	if countryCode == "" {
		countryCode = "+33"
	}
	toolset := frontdesktools.Tools(frontdesktools.Deps{
		Booking: protocol,
		Phone:   capture.NewTask(capture.PhoneField(countryCode)),
		Name:    capture.NewTask(capture.NameField()),
		Metrics: metrics,
	})

	srv, err := mcpserver.New("frontdesk", version, toolset)
	if err != nil {
		return err
	}
	slog.Info("mcp server ready on stdio")
	return srv.Run(ctx)
}

// buildCalendar constructs the booking backend named in cfg. An empty
// provider falls back to the in-memory fake with a warning.
func buildCalendar(cfg *config.Config, tz *time.Location) (calendar.Calendar, error) {
	switch cfg.Calendar.Provider {
	case config.CalendarCalCom:
		var opts []calendar.CalComOption
		if cfg.Calendar.BaseURL != "" {
			opts = append(opts, calendar.WithBaseURL(cfg.Calendar.BaseURL))
		}
		if cfg.Calendar.EventTypeSlug != "" {
			opts = append(opts, calendar.WithEventTypeSlug(cfg.Calendar.EventTypeSlug))
		}
		if cfg.Calendar.EventDurationMin > 0 {
			opts = append(opts, calendar.WithEventDuration(cfg.Calendar.EventDurationMin))
		}
		return calendar.NewCalCom(cfg.Calendar.APIKey, tz, opts...)
	case config.CalendarFake:
		return calendar.NewFake(tz), nil
	default:
		slog.Warn("no calendar provider configured; using randomly generated availability")
		return calendar.NewFake(tz), nil
	}
}

// buildNotifier constructs the SMS sender, or the disabled sender when no
// credentials are configured.
func buildNotifier(cfg *config.Config) (notify.Sender, error) {
	if cfg.SMS.AccountSID == "" {
		return notify.Disabled{}, nil
	}
	var opts []notify.TwilioOption
	if cfg.SMS.BaseURL != "" {
		opts = append(opts, notify.WithTwilioBaseURL(cfg.SMS.BaseURL))
	}
	return notify.NewTwilio(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber, opts...)
}

// buildLLM constructs the LLM provider named in entry via any-llm-go.
func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	if entry.Name == "" {
		return nil, errors.New("providers.llm.name is not configured")
	}
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

// httpServer assembles the health and metrics endpoint.
func httpServer(addr string, cal calendar.Calendar, metrics *observe.Metrics) *http.Server {
	mux := http.NewServeMux()
	health.New(health.CalendarChecker(cal)).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, mode string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Frontdesk — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Mode            : %-19s ║\n", mode)
	printEntry("LLM", providerLabel(cfg.Providers.LLM.Name, cfg.Providers.LLM.Model))
	printEntry("Calendar", string(cfg.Calendar.Provider))
	if cfg.SMS.AccountSID != "" {
		printEntry("SMS", "twilio")
	} else {
		printEntry("SMS", "(disabled)")
	}
	printEntry("Language", cfg.Agent.Language)
	printEntry("Timezone", cfg.Agent.Timezone)
	if cfg.Server.ListenAddr != "" {
		printEntry("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func providerLabel(name, model string) string {
	if name == "" {
		return ""
	}
	if model != "" {
		return name + " / " + model
	}
	return name
}

func printEntry(kind, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
