package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/loykin/botherd"
	"github.com/loykin/botherd/internal/logbuf"
)

// restartPollInterval matches the cadence at which the main loop consumes
// the restart flag set by the TCP listener.
const restartPollInterval = 500 * time.Millisecond

const defaultAPIUrl = "http://127.0.0.1:9880"

// runLauncher is the long-running entry point behind `botherd run`.
func runLauncher(configPath string, flags RunFlags) error {
	cfg, err := botherd.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Bot.Script == "" {
		return errors.New("bot.script is required (set it in the config file)")
	}

	app, err := botherd.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if err := botherd.RegisterMetricsDefault(); err != nil {
		return err
	}
	if err := app.ListenRestart(); err != nil {
		return err
	}
	_ = app.ServeHTTP()

	if !flags.Quiet {
		go mirrorOutput(app.Notify())
	}

	if _, err := app.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	ticker := time.NewTicker(restartPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if app.TakeRestartRequest() {
				if err := app.Restart(""); err != nil {
					fmt.Fprintf(os.Stderr, "restart failed: %v\n", err)
				}
			}
		case s := <-sig:
			fmt.Fprintf(os.Stderr, "received %v, shutting down\n", s)
			return app.Close()
		}
	}
}

// mirrorOutput echoes live bot lines to stdout the way a terminal user
// would see them from the bot itself.
func mirrorOutput(lines <-chan logbuf.Line) {
	for line := range lines {
		if line.Stream == logbuf.StreamStderr {
			fmt.Fprintln(os.Stderr, line.Text)
			continue
		}
		fmt.Println(line.Text)
	}
}

func requestRestart(flags RestartFlags) error {
	if err := botherd.RequestRestart(flags.Addr); err != nil {
		return fmt.Errorf("launcher not reachable at %s: %w", flags.Addr, err)
	}
	fmt.Println("restart requested")
	return nil
}

// queryAPI fetches path from the launcher's HTTP API and prints the body.
func queryAPI(flags APIFlags, path string) error {
	base := flags.APIUrl
	if base == "" {
		base = defaultAPIUrl
	}
	base = strings.TrimRight(base, "/")

	client := &http.Client{Timeout: flags.APITimeout}
	resp, err := client.Get(base + path)
	if err != nil {
		return fmt.Errorf("launcher not reachable at %s - is 'botherd run' active?: %w", base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}
