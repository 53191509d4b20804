package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/sensor-assistant/internal/config"
	"github.com/i474232898/sensor-assistant/internal/store"
	"github.com/i474232898/sensor-assistant/internal/tui"
)

var errEmptyQuestion = errors.New("question is empty")

// RunChat runs the terminal chat until the user quits or ctx is done.
func RunChat(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, err := OpenBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer backend.Close()

	panel := newPanel(cfg, logger)
	session := newSession(ctx, cfg, logger, backend, panel)

	program := tea.NewProgram(tui.New(ctx, session, panel), tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	if backend.Source != "" {
		g.Go(func() error {
			err := store.Watch(gctx, backend.Source, logger, func() {
				program.Send(tui.ReloadMsg{})
			})
			if err != nil {
				logger.Warn("store watch stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		// The watcher stops with the UI.
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	return g.Wait()
}

// Ask answers one question and writes the answer, and the graph path when
// one was rendered, to w. Pending notices are written first.
func Ask(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, w io.Writer, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return errEmptyQuestion
	}

	backend, err := OpenBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer backend.Close()

	panel := newPanel(cfg, logger)
	session := newSession(ctx, cfg, logger, backend, panel)
	for _, n := range session.Notices() {
		fmt.Fprintln(w, n)
	}

	resp := session.Ask(ctx, question)
	fmt.Fprintln(w, resp.Text)
	if resp.GraphPath != "" {
		fmt.Fprintf(w, "Graph saved to %s\n", resp.GraphPath)
	}
	return nil
}
