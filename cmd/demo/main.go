package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"tourloop/playback"
	"tourloop/types"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginTop(1).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2)

	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// Messages for the tea program
type refreshMsg struct{}

type clipReadyMsg struct {
	segmentIndex int
}

// Model represents the player state
type model struct {
	engine    *playback.Engine
	waypoints []*types.Waypoint
	segments  []*types.Segment
	autoplay  bool
	speed     float64
	logs      []string
}

func sampleTour() ([]*types.Waypoint, []*types.Segment) {
	names := []string{"entrance", "atrium", "gallery", "terrace"}
	waypoints := make([]*types.Waypoint, len(names))
	for i, name := range names {
		ref := types.RemoteImage(fmt.Sprintf("https://cdn.example.com/tours/demo/%s.jpg", name))
		waypoints[i] = &types.Waypoint{
			ID:       name,
			Azimuth:  float64(i) * 90,
			IsSource: i == 0,
			Status:   types.StatusReady,
			Image:    &ref,
		}
	}
	return waypoints, types.LoopSegments(waypoints)
}

func initialModel() model {
	waypoints, segments := sampleTour()

	// Demo clips never hit the network; the loader just stamps them ready.
	cache := playback.NewPreloadCache(func(ctx context.Context, url string) (playback.MediaHandle, error) {
		return playback.MediaHandle{URL: url, DurationSeconds: 3, Width: 832, Height: 480}, nil
	})

	return model{
		engine:    playback.NewEngine(waypoints, segments, cache),
		waypoints: waypoints,
		segments:  segments,
		speed:     1.0,
		logs:      []string{},
	}
}

func (m model) Init() tea.Cmd {
	// Stagger fake generation completions so clips trickle in while browsing.
	cmds := []tea.Cmd{refreshTick()}
	for i := range m.segments {
		cmds = append(cmds, clipReadyAfter(i, time.Duration(i+1)*2*time.Second))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.engine.Close()
			return m, tea.Quit
		case "right", "l":
			m.engine.NavigateNext()
		case "left", "h":
			m.engine.NavigatePrev()
		case " ":
			m.autoplay = m.engine.TogglePlayback()
			if m.autoplay {
				m.addLog("Autoplay on")
			} else {
				m.addLog("Autoplay off")
			}
		case "enter":
			if m.engine.Transitioning() {
				m.engine.HandleTransitionEnd()
				m.addLog("Transition finished")
			}
		case "c":
			m.engine.HandleVideoCanPlay()
		case "+", "=":
			m.speed = m.speed * 2
			m.engine.SetSpeed(m.speed)
			m.addLog(fmt.Sprintf("Speed %.2gx", m.speed))
		case "-":
			m.speed = m.speed / 2
			m.engine.SetSpeed(m.speed)
			m.addLog(fmt.Sprintf("Speed %.2gx", m.speed))
		}
		return m, nil

	case clipReadyMsg:
		seg := m.segments[msg.segmentIndex]
		seg.AddVersion(types.Version{
			ID:        uuid.New().String(),
			ClipURL:   fmt.Sprintf("https://cdn.example.com/tours/demo/clip-%d.mp4", msg.segmentIndex),
			CreatedAt: time.Now(),
			Selected:  true,
		})
		m.engine.SetSegments(context.Background(), m.segments)
		m.addLog(fmt.Sprintf("Clip ready: %s → %s", seg.FromWaypointID, seg.ToWaypointID))
		return m, nil

	case refreshMsg:
		// Autoplay runs inside the engine; ticking just re-renders the view.
		return m, refreshTick()
	}

	return m, nil
}

func (m *model) addLog(logMsg string) {
	m.logs = append(m.logs, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), logMsg))
	if len(m.logs) > 8 {
		m.logs = m.logs[len(m.logs)-8:]
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🎞  Tour Loop Player Demo"))
	b.WriteString("\n\n")

	content := m.engine.CurrentContent()
	current := m.waypoints[m.engine.CurrentIndex()]

	if content.Type == playback.ContentVideo {
		direction := "forward"
		if content.PlayReverse {
			direction = "reversed"
		}
		readiness := "buffering, showing source still"
		if content.VideoReady {
			readiness = "playing"
		}
		b.WriteString(highlightStyle.Render(fmt.Sprintf("▶ Transition (%s, %s)", direction, readiness)))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("  clip:       " + content.URL))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("  background: " + content.BackgroundImageURL))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("  target:     " + content.TargetImageURL))
		b.WriteString("\n\n")
	} else {
		b.WriteString(statusStyle.Render(fmt.Sprintf("📍 At waypoint %s", current.ID)))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("  still: " + content.URL))
		b.WriteString("\n\n")
	}

	var rows []string
	for _, seg := range m.segments {
		mark := errorStyle.Render("✗")
		if seg.Playable() {
			mark = statusStyle.Render("✓")
		} else if seg.Status == types.StatusPending {
			mark = infoStyle.Render("…")
		}
		rows = append(rows, fmt.Sprintf("%s %s → %s", mark, seg.FromWaypointID, seg.ToWaypointID))
	}
	b.WriteString(boxStyle.Render("Segments\n\n" + strings.Join(rows, "\n")))
	b.WriteString("\n\n")

	autoplayText := "off"
	if m.autoplay {
		autoplayText = fmt.Sprintf("on (%.2gx)", m.speed)
	}
	b.WriteString(infoStyle.Render("Autoplay: " + autoplayText))
	b.WriteString("\n\n")

	if len(m.logs) > 0 {
		b.WriteString(infoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, logMsg := range m.logs {
			b.WriteString(infoStyle.Render("   " + logMsg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(infoStyle.Render("←/→ navigate | space autoplay | enter end transition | c video can-play | +/- speed | q quit"))
	return b.String()
}

// Tea commands
func refreshTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func clipReadyAfter(index int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return clipReadyMsg{segmentIndex: index}
	})
}

func main() {
	if _, err := tea.NewProgram(initialModel()).Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
