// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const maxLogEntries = 100

// Focus states
const (
	focusEQList = iota
	focusTrackInput
	focusButtons
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// logEntry is one line of the event log
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// eqPreset is one row of the EQ list
type eqPreset struct {
	value int
	name  string
}

// Implement list.Item interface
func (e eqPreset) Title() string       { return e.name }
func (e eqPreset) Description() string { return fmt.Sprintf("EQ %d", e.value) }
func (e eqPreset) FilterValue() string { return e.name }

var eqPresets = []eqPreset{
	{dfplayer.EQNormal, "Normal"},
	{dfplayer.EQPop, "Pop"},
	{dfplayer.EQRock, "Rock"},
	{dfplayer.EQJazz, "Jazz"},
	{dfplayer.EQClassic, "Classic"},
	{dfplayer.EQBass, "Bass"},
}

// controlButton is a transport control in the button row
type controlButton struct {
	label string
	run   playerOp
}

var controlButtons = []controlButton{
	{"|<", (*dfplayer.Player).Previous},
	{">", (*dfplayer.Player).Resume},
	{"||", (*dfplayer.Player).Pause},
	{">|", (*dfplayer.Player).Next},
	{"[]", (*dfplayer.Player).Stop},
	{"Vol-", (*dfplayer.Player).VolumeDown},
	{"Vol+", (*dfplayer.Player).VolumeUp},
}

// moduleSnapshot is the result of one status poll
type moduleSnapshot struct {
	volume  uint16
	playing bool
	eq      uint16
	track   uint16
	at      time.Time
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	connMgr  *connectionManager
	connInfo string

	// Controls
	eqList        list.Model
	trackInput    textinput.Model
	focusedField  int
	focusedButton int

	// Module state
	snapshot    *moduleSnapshot
	polling     bool
	lastPoll    time.Time
	lastPollErr error
	lastEvent   *dfplayer.Event

	// Monitoring
	log     []logEntry
	started time.Time

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type moduleEventMsg struct {
	event dfplayer.Event
}

type pollMsg struct {
	snapshot *moduleSnapshot
	err      error
}

type actionDoneMsg struct {
	label string
	err   error
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(connMgr *connectionManager, connInfo string) controlModel {
	ti := textinput.New()
	ti.Placeholder = "1"
	ti.CharLimit = 4
	ti.Width = 6
	ti.Validate = func(s string) error {
		if s == "" {
			return nil
		}
		_, err := strconv.Atoi(s)
		return err
	}

	items := make([]list.Item, len(eqPresets))
	for i, p := range eqPresets {
		items[i] = p
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	eqList := list.New(items, delegate, 20, len(eqPresets)+2)
	eqList.Title = "EQ"
	eqList.SetShowStatusBar(false)
	eqList.SetShowHelp(false)
	eqList.SetFilteringEnabled(false)

	return controlModel{
		connMgr:      connMgr,
		connInfo:     connInfo,
		eqList:       eqList,
		trackInput:   ti,
		focusedField: focusButtons,
		log:          make([]logEntry, 0),
		started:      time.Now(),
		width:        80,
		height:       24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return tea.Batch(controlTickCmd(), m.pollCmd())
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if m.focusedField == focusEQList {
			m.eqList, _ = m.eqList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case controlTickMsg:
		if !m.polling && !m.connectionLost && time.Since(m.lastPoll) >= controlPollInterval {
			m.polling = true
			return m, tea.Batch(controlTickCmd(), m.pollCmd())
		}
		return m, controlTickCmd()

	case pollMsg:
		m.polling = false
		m.lastPoll = time.Now()
		m.lastPollErr = msg.err
		if msg.snapshot != nil {
			m.snapshot = msg.snapshot
		}
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Status poll failed: %v", msg.err), true)
		}

	case actionDoneMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.label, msg.err), true)
		} else {
			m.addLogEntry(fmt.Sprintf("Sent %s", msg.label), false)
		}

	case moduleEventMsg:
		e := msg.event
		m.lastEvent = &e
		m.addLogEntry(e.String(), e.Kind == dfplayer.EventError)

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.snapshot = nil
		m.addLogEntry("Reconnected", false)
		m.polling = true
		return m, m.pollCmd()
	}

	return m, nil
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		return m.handleEnter()
	}

	// The track input consumes everything else while focused
	if m.focusedField == focusTrackInput {
		var cmd tea.Cmd
		m.trackInput, cmd = m.trackInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case " ":
		return m.togglePlayback()
	case "n":
		return m, m.actionCmd("NEXT", (*dfplayer.Player).Next)
	case "p":
		return m, m.actionCmd("PREVIOUS", (*dfplayer.Player).Previous)
	case "+", "=":
		return m, m.actionCmd("VOLUME_UP", (*dfplayer.Player).VolumeUp)
	case "-":
		return m, m.actionCmd("VOLUME_DOWN", (*dfplayer.Player).VolumeDown)
	case "r":
		if !m.polling {
			m.polling = true
			return m, m.pollCmd()
		}
		return m, nil
	}

	switch m.focusedField {
	case focusEQList:
		var cmd tea.Cmd
		m.eqList, cmd = m.eqList.Update(msg)
		return m, cmd

	case focusButtons:
		switch msg.String() {
		case "left", "h":
			m.focusedButton = (m.focusedButton + len(controlButtons) - 1) % len(controlButtons)
		case "right", "l":
			m.focusedButton = (m.focusedButton + 1) % len(controlButtons)
		}
	}

	return m, nil
}

func (m *controlModel) cycleFocus(delta int) *controlModel {
	m.focusedField = (m.focusedField + delta + focusButtons + 1) % (focusButtons + 1)

	if m.focusedField == focusTrackInput {
		m.trackInput.Focus()
	} else {
		m.trackInput.Blur()
	}
	return m
}

func (m *controlModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}

	switch m.focusedField {
	case focusEQList:
		preset, ok := m.eqList.SelectedItem().(eqPreset)
		if !ok {
			return m, nil
		}
		return m, m.actionCmd(fmt.Sprintf("EQ %s", preset.name), func(p *dfplayer.Player, ctx context.Context) error {
			return p.SetEQ(ctx, preset.value)
		})

	case focusTrackInput:
		value := m.trackInput.Value()
		if value == "" {
			value = m.trackInput.Placeholder
		}
		track, err := strconv.Atoi(value)
		if err != nil || track < 1 {
			m.addLogEntry(fmt.Sprintf("Invalid track number: %s", value), true)
			return m, nil
		}
		m.trackInput.SetValue("")
		return m, m.actionCmd(fmt.Sprintf("PLAY track %d", track), func(p *dfplayer.Player, ctx context.Context) error {
			return p.PlayTrack(ctx, track)
		})

	case focusButtons:
		b := controlButtons[m.focusedButton]
		return m, m.actionCmd(b.label, b.run)
	}

	return m, nil
}

func (m *controlModel) togglePlayback() (tea.Model, tea.Cmd) {
	if m.snapshot != nil && m.snapshot.playing {
		m.snapshot.playing = false
		return m, m.actionCmd("PAUSE", (*dfplayer.Player).Pause)
	}
	if m.snapshot != nil {
		m.snapshot.playing = true
	}
	return m, m.actionCmd("PLAY", (*dfplayer.Player).Resume)
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// actionCmd runs a player action off the UI goroutine
func (m controlModel) actionCmd(label string, op playerOp) tea.Cmd {
	cm := m.connMgr
	return func() tea.Msg {
		return actionDoneMsg{label: label, err: cm.do(op)}
	}
}

// pollCmd queries the values the status panel shows
func (m controlModel) pollCmd() tea.Cmd {
	cm := m.connMgr
	return func() tea.Msg {
		snap := &moduleSnapshot{}
		err := cm.do(func(p *dfplayer.Player, ctx context.Context) error {
			var err error
			if snap.volume, err = p.Volume(ctx); err != nil {
				return err
			}
			if snap.playing, err = p.IsPlaying(ctx); err != nil {
				return err
			}
			if snap.eq, err = p.EQ(ctx); err != nil {
				return err
			}
			if snap.track, err = p.CurrentTrack(ctx, dfplayer.MediumSD); err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			return pollMsg{err: err}
		}
		snap.at = time.Now()
		return pollMsg{snapshot: snap}
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("12"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12")).
			Padding(0, 1)

	focusedButtonStyle = buttonStyle.
				Background(lipgloss.Color("10"))
)

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("DFCTL CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch", connStatus)))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf(" %s %s\n\n", labelStyle.Render("Session:"), valueStyle.Render(formatElapsed(time.Since(m.started)))))

	// Layout: left panel (EQ list) | right panel (status and controls)
	leftWidth := 22
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusEQList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	eqPanel := listStyle.Render(m.eqList.View())
	controlPanel := boxStyle.Width(rightWidth).Render(m.renderControlPanel())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, eqPanel, " ", controlPanel))
	s.WriteString("\n\n")
	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n\n")
	s.WriteString(m.renderEventLog())

	return s.String()
}

func (m controlModel) renderControlPanel() string {
	var s strings.Builder

	if m.snapshot == nil {
		if m.lastPollErr != nil {
			s.WriteString(errorStyle.Render("Status unavailable"))
		} else {
			s.WriteString(headerStyle.Render("Reading module status..."))
		}
	} else {
		playing := "Stopped"
		if m.snapshot.playing {
			playing = "Playing"
		}
		eq := strings.TrimPrefix(dfplayer.FormatParam(dfplayer.EncodeValue(dfplayer.QueryEQ, dfplayer.NoFeedback, m.snapshot.eq)), "EQ: ")
		s.WriteString(fmt.Sprintf("%s %s  %s %s\n",
			labelStyle.Render("State:"), valueStyle.Render(playing),
			labelStyle.Render("Track:"), valueStyle.Render(strconv.Itoa(int(m.snapshot.track)))))
		s.WriteString(fmt.Sprintf("%s %s  %s %s\n",
			labelStyle.Render("Volume:"), valueStyle.Render(fmt.Sprintf("%d/%d", m.snapshot.volume, dfplayer.MaxVolume)),
			labelStyle.Render("EQ:"), valueStyle.Render(eq)))
		s.WriteString(headerStyle.Render(fmt.Sprintf("updated %s", m.snapshot.at.Format("15:04:05"))))
	}
	if m.lastEvent != nil {
		s.WriteString(fmt.Sprintf("\n%s %s", labelStyle.Render("Last event:"), m.lastEvent))
	}
	s.WriteString("\n\n")

	// Track entry
	s.WriteString(labelStyle.Render("Play track: "))
	if m.focusedField == focusTrackInput {
		s.WriteString(m.trackInput.View())
	} else {
		val := m.trackInput.Value()
		if val == "" {
			val = m.trackInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	// Button row
	buttons := make([]string, len(controlButtons))
	for i, b := range controlButtons {
		if m.focusedField == focusButtons && i == m.focusedButton {
			buttons[i] = focusedButtonStyle.Render(b.label)
		} else {
			buttons[i] = buttonStyle.Render(b.label)
		}
	}
	s.WriteString(strings.Join(buttons, " "))

	return s.String()
}

func (m controlModel) renderStatisticsBar() string {
	s := m.connMgr.getSession()
	if s == nil {
		return boxStyle.Width(m.width - 4).Render(headerStyle.Render("No statistics"))
	}
	stats := s.client.Stats()

	errCount := stats.ChecksumErrors + stats.FramingErrors
	errValue := valueStyle.Render("0")
	if errCount > 0 {
		errValue = errorStyle.Render(fmt.Sprintf("%d", errCount))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Sent:"), valueStyle.Render(fmt.Sprintf("%d", stats.SentFrames)),
		labelStyle.Render("Received:"), valueStyle.Render(fmt.Sprintf("%d", stats.ValidFrames)),
		labelStyle.Render("Errors:"), errValue,
		labelStyle.Render("Timeouts:"), valueStyle.Render(fmt.Sprintf("%d", stats.Timeouts)),
		labelStyle.Render("Events:"), valueStyle.Render(fmt.Sprintf("%d", stats.Events)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	if len(m.log) < logHeight {
		logHeight = len(m.log)
	}
	startIdx := len(m.log) - logHeight

	if len(m.log) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.log); i++ {
			entry := m.log[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.log = append(m.log, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.log) > maxLogEntries {
		m.log = m.log[len(m.log)-maxLogEntries:]
	}
}

// formatElapsed formats a duration as "1h 02m 03s", dropping leading zero units
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mins := int(d/time.Minute) % 60
	secs := int(d/time.Second) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, mins, secs)
	case mins > 0:
		return fmt.Sprintf("%dm %02ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
