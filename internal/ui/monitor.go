package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/puara/puara/internal/wifi"
)

// StatusSource is what the monitor polls.
type StatusSource interface {
	State() wifi.Status
	ScanResults() []wifi.ScanResult
}

// MonitorOptions configures the status monitor.
type MonitorOptions struct {
	// Interval between state polls
	Interval time.Duration
	// Scan runs a network scan when the scan key is pressed. Nil disables
	// the key.
	Scan func() error
	// Version shown in the title
	Version string
}

type tickMsg time.Time

type scanDoneMsg struct{ err error }

type monitorKeyMap struct {
	Scan key.Binding
	Quit key.Binding
}

func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.Quit}
}

func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Scan, k.Quit}}
}

// MonitorModel is a live view of the connectivity state.
type MonitorModel struct {
	src  StatusSource
	opts MonitorOptions

	status   wifi.Status
	scanning bool
	scanErr  error

	spinner spinner.Model
	table   table.Model
	help    help.Model
	keys    monitorKeyMap
	width   int
}

// NewMonitor creates a monitor over src.
func NewMonitor(src StatusSource, opts MonitorOptions) MonitorModel {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = PendingStyle

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "SSID", Width: 32},
			{Title: "RSSI", Width: 6},
			{Title: "Channel", Width: 8},
		}),
		table.WithHeight(8),
	)

	keys := monitorKeyMap{
		Scan: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	keys.Scan.SetEnabled(opts.Scan != nil)

	return MonitorModel{
		src:     src,
		opts:    opts,
		status:  src.State(),
		spinner: s,
		table:   t,
		help:    help.New(),
		keys:    keys,
		width:   GetTerminalWidth(),
	}
}

func (m MonitorModel) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Scan) && !m.scanning:
			m.scanning = true
			scan := m.opts.Scan
			return m, func() tea.Msg { return scanDoneMsg{err: scan()} }
		}

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)

	case tickMsg:
		m.refresh()
		return m, m.tick()

	case scanDoneMsg:
		m.scanning = false
		m.scanErr = msg.err
		m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *MonitorModel) refresh() {
	m.status = m.src.State()
	results := m.src.ScanResults()
	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, table.Row{r.SSID, strconv.Itoa(r.RSSI), strconv.Itoa(r.Channel)})
	}
	m.table.SetRows(rows)
}

func clampWidth(w int) int {
	if w < MinTerminalWidth {
		return MinTerminalWidth
	}
	if w > MaxContentWidth {
		return MaxContentWidth
	}
	return w
}

// View implements tea.Model
func (m MonitorModel) View() string {
	st := m.status
	title := "Puara " + st.DeviceName
	if m.opts.Version != "" {
		title += "  (" + m.opts.Version + ")"
	}

	pairs := []string{
		m.line("Station", m.roleState(st.Station, st.StaConnected)),
		m.line("Network", ValueStyle.Render(st.SSID)),
		m.line("Access point", m.roleState(st.AP, st.APEnabled)),
	}
	if st.StaIP.IsValid() {
		pairs = append(pairs, m.line("Station IP", ValueStyle.Render(st.StaIP.String())))
	}
	if st.APIP.IsValid() {
		pairs = append(pairs, m.line("AP IP", ValueStyle.Render(st.APIP.String())))
	}
	if st.APUnserved {
		pairs = append(pairs, m.line("DHCP", BadStyle.Render("unserved")))
	}
	mode := "dual role"
	switch {
	case st.StaConnected && !st.APEnabled:
		mode = "station"
	case !st.StaConnected && st.APEnabled:
		mode = "access point"
	case !st.StaConnected && !st.APEnabled:
		mode = "offline"
	}
	pairs = append(pairs, m.line("Mode", ValueStyle.Render(mode)))

	var scan string
	switch {
	case m.scanning:
		scan = m.spinner.View() + " scanning..."
	case m.scanErr != nil:
		scan = BadStyle.Render(FailureMarker + " scan failed: " + m.scanErr.Error())
	case len(m.table.Rows()) > 0:
		scan = m.table.View()
	default:
		scan = HintStyle.Render("no scan results")
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(strings.TrimSpace(title)),
		RenderDivider(m.width-6),
		strings.Join(pairs, "\n"),
		"",
		scan,
	)
	return BoxStyle(m.width, PrimaryColor).Render(body) + "\n" + m.help.View(m.keys) + "\n"
}

func (m MonitorModel) line(k, v string) string {
	return KeyStyle.Render(k+":") + " " + v
}

func (m MonitorModel) roleState(s wifi.State, up bool) string {
	switch {
	case up && (s == wifi.Connected || s == wifi.ApActive):
		return GoodStyle.Render(SuccessMarker + " " + s.String())
	case s == wifi.ConnectingStation || s == wifi.ApEnabling || s == wifi.ConfiguringRoles:
		return m.spinner.View() + " " + PendingStyle.Render(s.String())
	case s == wifi.Disconnected:
		return BadStyle.Render(FailureMarker + " " + s.String())
	default:
		return ValueStyle.Render(fmt.Sprint(s))
	}
}

// RunMonitor runs the monitor until the user quits or ctx is done.
func RunMonitor(ctx context.Context, src StatusSource, opts MonitorOptions) error {
	p := tea.NewProgram(NewMonitor(src, opts), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
