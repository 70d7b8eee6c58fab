package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/russianllm/ruterm/internal/apiclient"
	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/logging"
	"github.com/russianllm/ruterm/internal/marker"
	"github.com/russianllm/ruterm/internal/notice"
	"github.com/russianllm/ruterm/internal/session"
	"github.com/russianllm/ruterm/internal/tui"
)

// cookieFileName sits next to the session marker in the state dir.
const cookieFileName = "cookies.json"

// runTUI wires the session store, fetch controller and screens, then runs the
// program until the user quits or the process is signalled.
func runTUI(cfg appConfig) error {
	// The terminal belongs to the UI; logs go to the state dir.
	logger, cleanupLogger, err := logging.New(logging.Config{Level: cfg.LogLevel, Dir: cfg.StateDir})
	if err != nil {
		return err
	}
	defer cleanupLogger()

	clock := clockwork.NewRealClock()
	mcfg := cfg.markerConfig()
	mcfg.Redis.Clock = clock
	m, err := marker.Open(mcfg)
	if err != nil {
		return err
	}
	if c, ok := m.(io.Closer); ok {
		defer c.Close()
	}

	api, err := apiclient.New(apiclient.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
		CookieFile: filepath.Join(cfg.StateDir, cookieFileName),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	relay := tui.NewRelay()

	store := session.New(api, m, relay,
		session.WithClock(clock),
		session.WithLogger(logger),
		session.WithProbeRetry(cfg.ProbeRetry),
		session.WithSlowNetwork(cfg.SlowNetworkAfter),
	)
	defer store.Close()
	if err := store.Subscribe(relay.Session); err != nil {
		return fmt.Errorf("subscribing to session: %w", err)
	}

	fetcher := fetch.New(store,
		fetch.WithClock(clock),
		fetch.WithLogger(logger),
		fetch.WithBackoff(cfg.BackoffInitial, cfg.BackoffMax),
		fetch.WithNotify(relay.Fetch),
	)
	defer fetcher.Close()

	app := tui.NewApp(tui.Deps{
		API:       api,
		Session:   store,
		Fetch:     fetcher,
		Notices:   notice.NewBoard(clock, cfg.ToastDuration),
		Clock:     clock,
		Logger:    logger,
		StartPath: cfg.StartPath,
	}, cfg.StartPath)

	p := tea.NewProgram(app, tea.WithAltScreen())
	relay.Attach(p)
	store.Start()
	logger.Info("client started", "api", cfg.APIBaseURL, "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		if _, err := p.Run(); err != nil {
			if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
				return fmt.Errorf("TUI requires a real terminal")
			}
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			p.Quit()
		case <-done:
		}
		return nil
	})
	return g.Wait()
}
