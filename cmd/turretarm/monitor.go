package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/control"
	"github.com/gwillem/turretarm/pkg/kinematics"
)

type MonitorCommand struct {
	Step  float64 `long:"step" default:"1" description:"Distance in inches per move key press"`
	Depth string  `long:"depth" default:"far" description:"Placement depth for the number keys (near, mid, far)"`
	Log   string  `long:"log" default:"turretarm.log" description:"File receiving log output while the dashboard runs"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	tableHeight  = 7 // joint table
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors
var jointColors = map[arm.Joint]string{
	arm.Pivot1: "196", // red
	arm.Pivot2: "226", // yellow
	arm.Turret: "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

type monitorModel struct {
	s          *session
	chart      *streamlinechart.Model
	step       float64
	depth      arm.Depth
	width      int // terminal width
	height     int // terminal height
	logs       []string
	state      control.State
	haveState  bool
	lastAngles kinematics.Angles
	quitting   bool
}

func (m *monitorModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg control.State
type logMsg string

func waitForState(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - tableHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func newMonitorModel(s *session, step float64, depth arm.Depth) monitorModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(-90, 270),
	)
	for _, j := range arm.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j]))
		chart.SetDataSetStyles(j.String(), runes.ThinLineStyle, style)
	}
	return monitorModel{s: s, chart: &chart, step: step, depth: depth}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.s.ctrl),
		waitForLog(m.s.ctrl),
	)
}

// handleKey turns a key press into a request for the control loop.
func (m *monitorModel) handleKey(key string) {
	ctrl := m.s.ctrl
	move := func(dx, dy, dz float64) {
		ctrl.Submit(func(a *arm.Arm, _ *activity.Scheduler) { a.MoveVector(dx, dy, dz) })
	}
	switch key {
	case "c":
		ctrl.Schedule(arm.NewCalibration(m.s.arm))
	case "h":
		ctrl.Submit(func(a *arm.Arm, _ *activity.Scheduler) {
			a.ResetCoords()
			ctrl.Log("Target reset to home %v", a.IntendedCoordinates())
		})
	case "p":
		ctrl.Submit(func(a *arm.Arm, _ *activity.Scheduler) {
			a.SetPIDControlState(!a.PIDControlOn())
			ctrl.Log("Mode %s", a.Mode())
		})
	case "x":
		ctrl.Submit(func(_ *arm.Arm, sched *activity.Scheduler) {
			sched.CancelAll()
			ctrl.Log("Cancelled all activities")
		})
	case "w":
		move(0, m.step, 0)
	case "s":
		move(0, -m.step, 0)
	case "a":
		move(0, 0, -m.step)
	case "d":
		move(0, 0, m.step)
	case "r":
		move(m.step, 0, 0)
	case "f":
		move(-m.step, 0, 0)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		cell, _ := arm.KeypadCell(int(key[0]-'0'), m.depth)
		p, _ := arm.PositionFor(cell)
		ctrl.Submit(func(a *arm.Arm, _ *activity.Scheduler) {
			if !a.SetIntendedPose(p, kinematics.SideApproach) {
				ctrl.Log("Position %s is unreachable", cell)
				return
			}
			ctrl.Log("Target %s %v", cell, p)
		})
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		default:
			m.handleKey(msg.String())
		}

	case stateMsg:
		state := control.State(msg)
		// Only update chart if there's movement (freeze when idle)
		if !m.haveState || state.Angles != m.lastAngles {
			m.chart.PushDataSet(arm.Pivot1.String(), state.Angles.Pivot1)
			m.chart.PushDataSet(arm.Pivot2.String(), state.Angles.Pivot2)
			m.chart.PushDataSet(arm.Turret.String(), state.Angles.Turret)
			m.chart.DrawAll()
			m.lastAngles = state.Angles
		}
		m.state = state
		m.haveState = true
		return m, waitForState(m.s.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.s.ctrl)
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Turret Arm"))
	sb.WriteString(fmt.Sprintf(" - %s - %d Hz ", m.s.cfg.Backend, m.s.ctrl.Hz()))
	if m.state.PID {
		sb.WriteString(onStyle.Render("CLOSED LOOP"))
	} else {
		sb.WriteString(offStyle.Render("OPEN LOOP"))
	}
	if len(m.state.Active) > 0 {
		sb.WriteString(statusStyle.Render("  running: " + strings.Join(m.state.Active, ", ")))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")
	sb.WriteString(m.renderJoints())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 40)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("c calibrate  h home  p pid  x cancel  1-9 place  w/s a/d r/f move  q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m monitorModel) renderJoints() string {
	st := m.state
	limit := func(pressed bool) string {
		if pressed {
			return "pressed"
		}
		return ""
	}
	rows := [][]string{
		{arm.Pivot1.String(), fmt.Sprintf("%.1f", st.Angles.Pivot1), fmt.Sprintf("%.1f", st.TargetAngles.Pivot1), fmt.Sprintf("%+.3f", st.Outputs[arm.Pivot1]), limit(st.Limit1)},
		{arm.Pivot2.String(), fmt.Sprintf("%.1f", st.Angles.Pivot2), fmt.Sprintf("%.1f", st.TargetAngles.Pivot2), fmt.Sprintf("%+.3f", st.Outputs[arm.Pivot2]), limit(st.Limit2)},
		{arm.Turret.String(), fmt.Sprintf("%.1f", st.Angles.Turret), fmt.Sprintf("%.1f", st.TargetAngles.Turret), fmt.Sprintf("%+.3f", st.Outputs[arm.Turret]), ""},
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(statusStyle).
		Headers("Joint", "Angle", "Target", "Output", "Limit").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && row >= 0 && row < len(rows) {
				return cellStyle.Foreground(lipgloss.Color(jointColors[arm.Joint(row)]))
			}
			return cellStyle
		})

	pose := fmt.Sprintf("pose (%.1f, %.1f, %.1f)  target (%.1f, %.1f, %.1f)  claw height %.1f",
		st.Current.X, st.Current.Y, st.Current.Z,
		st.Target.X, st.Target.Y, st.Target.Z,
		st.Claw.Height())
	return lipgloss.JoinHorizontal(lipgloss.Center, t.Render(), "  "+statusStyle.Render(pose))
}

func renderLegend() string {
	var items []string
	for _, j := range arm.AllJoints() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+j.String())
	}
	return strings.Join(items, "  ")
}

func (c *MonitorCommand) Execute(args []string) error {
	depth, err := arm.ParseDepth(c.Depth)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(c.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	done := s.start(ctx)

	p := tea.NewProgram(newMonitorModel(s, c.Step, depth), tea.WithAltScreen())
	_, err = p.Run()
	cancel()
	<-done
	return err
}
