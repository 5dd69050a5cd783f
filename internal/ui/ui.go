// Package ui renders a live terminal view of the monitored connection.
package ui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/uniquode/cmon-go/internal/config"
	"github.com/uniquode/cmon-go/internal/monitor"
	"github.com/uniquode/cmon-go/internal/status"
)

const (
	uiRefreshInterval = 500 * time.Millisecond
	// rttScaleMillis is how many milliseconds one bar cell represents.
	rttScaleMillis = 10
)

// UI renders the current session snapshot until quit or cancellation.
type UI struct {
	cfg   config.Options
	store *status.Store
}

// New returns a UI reading snapshots from store.
func New(cfg config.Options, store *status.Store) *UI {
	return &UI{cfg: cfg, store: store}
}

// Run blocks until the context is cancelled or the user quits.
func (u *UI) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	defer screen.Fini()

	eventCh := make(chan tcell.Event, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(uiRefreshInterval)
	defer ticker.Stop()

	u.render(screen, u.store.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return context.Canceled
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			u.render(screen, u.store.Snapshot())
		}
	}
}

func (u *UI) render(screen tcell.Screen, snap status.Snapshot) {
	screen.Clear()
	width, height := screen.Size()
	if width < 20 || height < 6 {
		screen.Show()
		return
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	header := fmt.Sprintf(" cmon  %s  (q to quit)", now)
	drawText(screen, 0, 0, width, header, tcell.StyleDefault.Bold(true))

	configInfo := fmt.Sprintf(" host=%s  interval=%s  threshold=%d",
		u.cfg.Host, u.cfg.Interval, u.cfg.ErrorThreshold)
	drawText(screen, 0, 1, width, configInfo, tcell.StyleDefault.Foreground(tcell.ColorGray))

	drawText(screen, 0, 3, width, statusLine(snap), stateStyle(snap.State))
	drawText(screen, 0, 4, width, probeLine(snap), tcell.StyleDefault)

	rows := height - 6
	points := recentPoints(snap.History, rows)
	for i, point := range points {
		line := fmt.Sprintf(" %s %8s %s",
			point.Time.Format("15:04:05"),
			formatRTT(point.RTT),
			rttBar(point.RTT, width-20))
		drawText(screen, 0, 6+i, width, line, tcell.StyleDefault)
	}

	screen.Show()
}

func statusLine(snap status.Snapshot) string {
	return fmt.Sprintf(" %s %s", padOrTrim(snap.Host, 24), snap.State)
}

func probeLine(snap status.Snapshot) string {
	last := "-"
	if !snap.LastProbeAt.IsZero() {
		last = snap.LastProbeAt.Format("15:04:05")
	}
	return fmt.Sprintf(" probes=%d  errors=%d  rtt=%s  last=%s  %s",
		snap.ProbeCount, snap.ConsecutiveErrors, formatRTT(snap.LastRTT), last, snap.LastDiagnostic)
}

func recentPoints(history []status.Point, max int) []status.Point {
	if max <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > max {
		history = history[len(history)-max:]
	}
	return history
}

func rttBar(rtt time.Duration, width int) string {
	if width <= 0 {
		return ""
	}
	ms := float64(rtt.Microseconds()) / 1000.0
	if ms <= 0 {
		return ""
	}
	units := int(math.Round(ms / rttScaleMillis))
	if units < 1 {
		units = 1
	}
	if units > width {
		units = width
	}
	return strings.Repeat("#", units)
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	if width <= 0 {
		return
	}
	col := x
	for _, r := range text {
		if col >= x+width {
			break
		}
		screen.SetContent(col, y, r, nil, style)
		col++
	}
	for col < x+width {
		screen.SetContent(col, y, ' ', nil, tcell.StyleDefault)
		col++
	}
}

func padOrTrim(value string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) > width {
		return string(runes[:width])
	}
	if len(runes) < width {
		return value + strings.Repeat(" ", width-len(runes))
	}
	return value
}

func formatRTT(rtt time.Duration) string {
	if rtt <= 0 {
		return "-"
	}
	if rtt < time.Millisecond {
		return fmt.Sprintf("%dus", rtt.Microseconds())
	}
	if rtt < time.Second {
		return fmt.Sprintf("%dms", rtt.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", rtt.Seconds())
}

func stateStyle(s monitor.State) tcell.Style {
	switch s {
	case monitor.StateUp:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	case monitor.StateDown:
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray).Bold(true)
	}
}
