package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/dashboard"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/energy"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	tabStyle = lipgloss.NewStyle().
			PaddingRight(2).
			Foreground(lipgloss.Color("245"))

	activeTabStyle = lipgloss.NewStyle().
			PaddingRight(2).
			Foreground(lipgloss.Color("170")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	anomalyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

type tab int

const (
	tabDashboard tab = iota
	tabRelays
	tabForecast
	tabAnomalies
)

var tabNames = []string{"Dashboard", "Relays", "Forecast", "Anomalies"}

type controllers struct {
	dash      *dashboard.Dashboard
	relays    *dashboard.RelayControl
	forecast  *dashboard.Forecast
	anomalies *dashboard.Anomalies
}

type model struct {
	c       controllers
	tab     tab
	cursor  int
	message string
}

// redrawMsg re-reads the controllers, which poll on their own.
type redrawMsg struct{}

type doneMsg struct{ err error }

func redraw() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return redrawMsg{} })
}

func run(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: fn(context.Background())}
	}
}

func (m model) Init() tea.Cmd {
	return redraw()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "tab", "right", "l":
			return m.switchTab((m.tab + 1) % tab(len(tabNames)))

		case "shift+tab", "left", "h":
			return m.switchTab((m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames)))

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < m.rows()-1 {
				m.cursor++
			}

		case "enter", " ":
			return m.activate()

		case "r":
			m.message = "Refreshing..."
			return m, m.refresh()
		}

	case redrawMsg:
		return m, redraw()

	case doneMsg:
		m.message = ""
		if msg.err != nil {
			m.message = anomalyStyle.Render("✗ " + api.Message(msg.err))
		}
	}

	return m, nil
}

func (m model) switchTab(t tab) (tea.Model, tea.Cmd) {
	m.tab = t
	m.cursor = 0
	m.message = ""
	switch t {
	case tabForecast:
		if m.c.forecast.View().Phase == dashboard.PhaseIdle {
			return m, run(func(ctx context.Context) error { return m.c.forecast.SetHorizon(ctx, 0) })
		}
	case tabAnomalies:
		if m.c.anomalies.View().Phase == dashboard.PhaseIdle {
			return m, run(func(ctx context.Context) error { return m.c.anomalies.Select(ctx, "") })
		}
	}
	return m, nil
}

func (m model) rows() int {
	switch m.tab {
	case tabRelays:
		return len(m.c.relays.View().Relays)
	case tabForecast:
		return len(dashboard.Horizons)
	case tabAnomalies:
		return len(dashboard.AnomalyDevices)
	}
	return 0
}

// activate acts on the row under the cursor: toggle a relay, pick a horizon
// or pick a device.
func (m model) activate() (tea.Model, tea.Cmd) {
	switch m.tab {
	case tabRelays:
		relays := m.c.relays.View().Relays
		if m.cursor >= len(relays) {
			return m, nil
		}
		id := relays[m.cursor].ID
		return m, run(func(ctx context.Context) error { return m.c.relays.Toggle(ctx, id) })
	case tabForecast:
		days := dashboard.Horizons[m.cursor]
		return m, run(func(ctx context.Context) error { return m.c.forecast.SetHorizon(ctx, days) })
	case tabAnomalies:
		device := dashboard.AnomalyDevices[m.cursor]
		return m, run(func(ctx context.Context) error { return m.c.anomalies.Select(ctx, device) })
	}
	return m, nil
}

func (m model) refresh() tea.Cmd {
	switch m.tab {
	case tabRelays:
		return run(m.c.relays.Refresh)
	case tabForecast:
		return run(m.c.forecast.Refresh)
	case tabAnomalies:
		return run(m.c.anomalies.Refresh)
	}
	return run(m.c.dash.Refresh)
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("⚡ Home Energy Dashboard"))
	s.WriteString("\n")
	for i, name := range tabNames {
		style := tabStyle
		if tab(i) == m.tab {
			style = activeTabStyle
		}
		s.WriteString(style.Render(name))
	}
	s.WriteString("\n\n")

	switch m.tab {
	case tabDashboard:
		s.WriteString(renderDashboard(m.c.dash.View()))
	case tabRelays:
		s.WriteString(renderRelays(m.c.relays.View(), m.cursor))
	case tabForecast:
		s.WriteString(renderForecast(m.c.forecast.View(), m.cursor))
	case tabAnomalies:
		s.WriteString(renderAnomalies(m.c.anomalies.View(), m.cursor))
	}

	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}
	s.WriteString(mutedStyle.Render("\n←/→ switch view, ↑/↓ select, Enter act, r refresh, q quit"))
	return s.String()
}

func renderDashboard(v dashboard.DashboardView) string {
	if v.Phase == dashboard.PhaseLoading || v.Phase == dashboard.PhaseIdle {
		return "Loading...\n"
	}
	var s strings.Builder
	fmt.Fprintf(&s, "Total power     %8.1f W\n", v.TotalPower)
	fmt.Fprintf(&s, "Energy today    %8.2f kWh\n", v.EnergyToday)
	fmt.Fprintf(&s, "Power trend     %+8.1f %%\n", v.PowerTrend)
	fmt.Fprintf(&s, "Estimated cost  %8.2f\n", v.EstimatedCost)
	fmt.Fprintf(&s, "Anomalies       %8d\n\n", v.AnomalyCount)
	for _, c := range v.Cards {
		status := normalStyle.Render(string(c.Status))
		if c.Status == energy.StatusAnomaly {
			status = anomalyStyle.Render(string(c.Status))
		}
		fmt.Fprintf(&s, "%-10s %8.1f W / %6.0f W  %s\n", c.Name, c.Power, c.Threshold, status)
	}
	if !v.UpdatedAt.IsZero() {
		s.WriteString(mutedStyle.Render("\nupdated " + v.UpdatedAt.Format("15:04:05")))
		s.WriteString("\n")
	}
	return s.String()
}

func renderRelays(v dashboard.RelaysView, cursor int) string {
	var s strings.Builder
	for i, r := range v.Relays {
		state := mutedStyle.Render("off")
		if r.On {
			state = normalStyle.Render("on")
		}
		if r.Pending {
			state += mutedStyle.Render(" …")
		}
		line := fmt.Sprintf("%-10s %s", r.Name, state)
		if i == cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		s.WriteString(line + "\n")
	}
	return s.String()
}

func renderForecast(v dashboard.ForecastView, cursor int) string {
	var s strings.Builder
	for i, days := range dashboard.Horizons {
		label := fmt.Sprintf("%d days", days)
		switch {
		case i == cursor:
			s.WriteString(selectedStyle.Render("> " + label))
		case days == v.Days:
			s.WriteString(activeTabStyle.Render("  " + label))
		default:
			s.WriteString(tabStyle.Render("  " + label))
		}
	}
	s.WriteString("\n\n")
	if v.Phase == dashboard.PhaseLoading {
		return s.String() + "Loading...\n"
	}
	for _, f := range v.Forecast {
		fmt.Fprintf(&s, "%s  %7.2f kWh\n", f.Date, f.PredictedEnergy)
	}
	fmt.Fprintf(&s, "\nTotal %.2f kWh\n", v.TotalPredicted)
	fmt.Fprintf(&s, "Outlook: %s\nTip: %s\n", v.Outlook, v.Tip)
	return s.String()
}

func renderAnomalies(v dashboard.AnomaliesView, cursor int) string {
	var s strings.Builder
	for i, d := range dashboard.AnomalyDevices {
		label := energy.DisplayName(d)
		switch {
		case i == cursor:
			s.WriteString(selectedStyle.Render("> " + label))
		case d == v.Device:
			s.WriteString(activeTabStyle.Render("  " + label))
		default:
			s.WriteString(tabStyle.Render("  " + label))
		}
	}
	s.WriteString("\n\n")
	if v.Phase == dashboard.PhaseLoading {
		return s.String() + "Loading...\n"
	}
	fmt.Fprintf(&s, "Threshold %.0f W\n\n", v.Threshold)
	if len(v.Rows) == 0 {
		s.WriteString(normalStyle.Render("No anomalies detected") + "\n")
	}
	for _, r := range v.Rows {
		fmt.Fprintf(&s, "%s  %s\n", r.Timestamp.Format("2006-01-02 15:04:05"), anomalyStyle.Render(fmt.Sprintf("%.1f W", r.Power)))
	}
	return s.String()
}

// setupLogging sends logs to a file so they do not corrupt the screen.
func setupLogging() (*os.File, error) {
	f, err := os.OpenFile("energytui.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(config.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f, nil
}

func main() {
	if err := runTUI(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func runTUI() error {
	if err := config.Load(); err != nil {
		return err
	}
	logFile, err := setupLogging()
	if err != nil {
		return err
	}
	defer logFile.Close()

	client := api.New(config.APIBaseURL(), config.APITimeout())
	opts := dashboard.Options{Interval: config.PollInterval(), Tariff: config.TariffPerKWh()}
	relayOpts := opts
	relayOpts.Interval = config.RelayPollInterval()

	c := controllers{
		dash:      dashboard.NewDashboard(client, opts),
		relays:    dashboard.NewRelayControl(client, relayOpts),
		forecast:  dashboard.NewForecast(client, opts),
		anomalies: dashboard.NewAnomalies(client, opts),
	}
	if err := runProgram(c); err != nil {
		log.Error().Err(err).Msg("tui exited")
		return err
	}
	return nil
}

// runProgram starts polling, runs the UI until it quits and stops polling
// again on every return path.
func runProgram(c controllers, opts ...tea.ProgramOption) error {
	ctx := context.Background()
	c.dash.Activate(ctx)
	defer c.dash.Deactivate()
	c.relays.Activate(ctx)
	defer c.relays.Deactivate()

	_, err := tea.NewProgram(model{c: c}, opts...).Run()
	return err
}
