package tui

import (
	"context"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sensor-assistant/internal/graph"
	"github.com/i474232898/sensor-assistant/internal/query"
	"github.com/i474232898/sensor-assistant/internal/sensor"
)

type fakeSession struct {
	notices  []string
	asked    []string
	reloads  int
	onReload []string
}

func (f *fakeSession) Ask(_ context.Context, q string) query.Response {
	f.asked = append(f.asked, q)
	return query.Response{Text: "answer to " + q}
}

func (f *fakeSession) Reload(context.Context) error {
	f.reloads++
	f.notices = append(f.notices, f.onReload...)
	return nil
}

func (f *fakeSession) Notices() []string {
	out := f.notices
	f.notices = nil
	return out
}

func (f *fakeSession) Greeting() string { return "Hello! I'm Tester." }
func (f *fakeSession) Name() string     { return "Tester" }

type fakePanel struct {
	path   string
	sums   []graph.Summary
	series []sensor.Series
}

func (f *fakePanel) Latest() (string, bool)     { return f.path, f.path != "" }
func (f *fakePanel) Summaries() []graph.Summary { return f.sums }
func (f *fakePanel) Series() []sensor.Series    { return f.series }

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

// runCmd executes cmd and feeds every message it yields, except spinner
// ticks, back into the model.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = runCmd(t, m, c)
		}
	case answerMsg:
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestNewShowsNoticesBeforeGreeting(t *testing.T) {
	s := &fakeSession{notices: []string{"Error: Could not find file at data.json"}}
	m := New(context.Background(), s, nil)

	require.Len(t, m.history, 2)
	assert.Equal(t, roleNotice, m.history[0].role)
	assert.Equal(t, "Error: Could not find file at data.json", m.history[0].text)
	assert.Equal(t, roleAssistant, m.history[1].role)
	assert.Equal(t, "Hello! I'm Tester.", m.history[1].text)
}

func TestSubmitAsksAndShowsAnswer(t *testing.T) {
	s := &fakeSession{}
	m := New(context.Background(), s, nil)
	m = typeText(t, m, "average temperature")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.Busy())
	assert.Empty(t, m.input.Value())

	m = runCmd(t, m, cmd)
	assert.False(t, m.Busy())
	assert.Equal(t, []string{"average temperature"}, s.asked)

	last := m.history[len(m.history)-1]
	assert.Equal(t, roleAssistant, last.role)
	assert.Equal(t, "answer to average temperature", last.text)
}

func TestInputIgnoredWhileBusy(t *testing.T) {
	s := &fakeSession{}
	m := New(context.Background(), s, nil)
	m = typeText(t, m, "first")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.True(t, m.Busy())
	n := len(m.history)

	m = typeText(t, m, "second")
	assert.Empty(t, m.input.Value())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Len(t, m.history, n)
}

func TestBlankInputIsNotSent(t *testing.T) {
	s := &fakeSession{}
	m := New(context.Background(), s, nil)
	m = typeText(t, m, "   ")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.False(t, m.Busy())
	assert.Empty(t, s.asked)
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		m := New(context.Background(), &fakeSession{}, nil)
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestReloadShowsPendingNotices(t *testing.T) {
	s := &fakeSession{}
	m := New(context.Background(), s, nil)
	n := len(m.history)

	s.onReload = []string{"Error: Invalid JSON format in sensor data file"}
	next, cmd := m.Update(ReloadMsg{})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Len(t, m.history, n)

	next, _ = m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, 1, s.reloads)
	require.Len(t, m.history, n+1)
	assert.Equal(t, roleNotice, m.history[n].role)
}

func TestViewWithGraphPanel(t *testing.T) {
	p := &fakePanel{}
	m := New(context.Background(), &fakeSession{}, p)
	assert.Equal(t, "Initializing...", m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	view := m.View()
	assert.Contains(t, view, "Tester")
	assert.Contains(t, view, "No graph yet")

	p.path = "/tmp/graphs/graph.png"
	p.sums = []graph.Summary{
		{Label: "Temperature (°C)", Points: 3, Min: 19, Max: 23, Last: 22},
		{Label: "Humidity (%)"},
	}
	p.series = []sensor.Series{
		{Metric: sensor.Temperature, Labels: []string{"a", "b", "c"}, Values: []float64{19, 23, 22}},
		{Metric: sensor.Humidity, Labels: []string{"a", "b", "c"}, Values: []float64{math.NaN(), math.NaN(), math.NaN()}},
	}
	panel := m.renderPanel()
	assert.Contains(t, panel, "graph.png")
	assert.Contains(t, panel, "min 19.0  max 23.0")
	assert.Contains(t, panel, "no readings")
	assert.Contains(t, panel, "Temperature Over Time")
	assert.Contains(t, panel, "┤")
	assert.Contains(t, m.View(), "Temperature Over Time")
}

func TestGraphPanelReplacesChart(t *testing.T) {
	p := &fakePanel{
		path:   "/tmp/graphs/graph.png",
		sums:   []graph.Summary{{Label: "Temperature (°C)", Points: 2, Min: 20, Max: 21, Last: 21}},
		series: []sensor.Series{{Metric: sensor.Temperature, Labels: []string{"a", "b"}, Values: []float64{20, 21}}},
	}
	m := New(context.Background(), &fakeSession{}, p)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	require.Contains(t, m.renderPanel(), "Temperature Over Time")

	p.sums = []graph.Summary{{Label: "Light Intensity (lux)", Points: 2, Min: 700, Max: 900, Last: 900}}
	p.series = []sensor.Series{{Metric: sensor.LightIntensity, Labels: []string{"a", "b"}, Values: []float64{700, 900}}}
	panel := m.renderPanel()
	assert.Contains(t, panel, "Light Intensity Over Time")
	assert.NotContains(t, panel, "Temperature Over Time")
}

func TestNarrowWindowHidesPanel(t *testing.T) {
	m := New(context.Background(), &fakeSession{}, &fakePanel{})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(Model)

	assert.False(t, m.showPanel())
	assert.False(t, strings.Contains(m.View(), "No graph yet"))
}

func TestWindowSizeZeroDoesNotPanic(t *testing.T) {
	m := New(context.Background(), &fakeSession{}, &fakePanel{})
	assert.NotPanics(t, func() {
		next, _ := m.Update(tea.WindowSizeMsg{Width: 0, Height: 0})
		_ = next.(Model).View()
	})
}
