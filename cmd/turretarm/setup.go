package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Port        string `long:"port" description:"Serial port of the bench rig (default: scan)"`
	Calibration string `long:"calibration" description:"Import ranges from a calibration file instead of recording them"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Bench Rig Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	port := c.Port
	if port == "" {
		if port, err = choosePort(); err != nil {
			return err
		}
	}

	var cal robot.Calibration
	if c.Calibration != "" {
		cal, err = robot.LoadCalibration(c.Calibration)
	} else {
		cal, err = recordRanges(port)
	}
	if err != nil {
		return err
	}

	cfg.Backend = robot.BackendBench
	cfg.Bench.Port = port
	cfg.Bench.Calibration = cal
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "calibration incomplete")
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return errors.Wrap(err, "save config")
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the dashboard with: " + headerStyle.Render("turretarm monitor"))
	return nil
}

func choosePort() (string, error) {
	fmt.Println("Scanning for bench rigs...")
	rigs := findRigs(2 * time.Second)
	switch len(rigs) {
	case 0:
		return "", errors.New("no bench rig found, make sure the servo bus is connected and powered on")
	case 1:
		return rigs[0].port, nil
	}

	var options []huh.Option[string]
	for _, r := range rigs {
		options = append(options, huh.NewOption(r.port, r.port))
	}
	var port string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which bench rig?").
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return port, nil
}

// recordRanges tracks each servo's extremes while the user moves the rig by
// hand. The pivots' homing offsets are taken where they rest at the end and the
// turret's at the middle of its range.
func recordRanges(port string) (robot.Calibration, error) {
	bus, err := openBus(port)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", port)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	servos, err := bus.Scan(ctx, 1, len(robot.AllMotors()))
	cancel()
	if err != nil {
		return nil, errors.Wrap(err, "scan servos")
	}
	if !isBenchRig(servos) {
		return nil, fmt.Errorf("not a bench rig (expected %d servos with IDs 1-%d)", len(robot.AllMotors()), len(robot.AllMotors()))
	}

	// Create servos map by ID
	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so user can move the rig freely
	bg := context.Background()
	for _, servo := range servoMap {
		servo.Disable(bg)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("Finish with both pivots resting on their lower stops.")
	fmt.Println()

	motors := robot.AllMotors()
	curPositions := make(map[robot.MotorName]int)
	minPositions := make(map[robot.MotorName]int)
	maxPositions := make(map[robot.MotorName]int)
	for i, name := range motors {
		pos, err := servoMap[i+1].Position(bg)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		curPositions[name] = pos
		minPositions[name] = pos
		maxPositions[name] = pos
	}

	p := tea.NewProgram(newRangeModel(motors, servoMap, curPositions, minPositions, maxPositions))
	finalModel, err := p.Run()
	if err != nil {
		return nil, errors.Wrap(err, "record ranges")
	}
	rm := finalModel.(rangeModel)
	if rm.aborted {
		return nil, errors.New("setup aborted")
	}

	cal := make(robot.Calibration)
	for i, name := range motors {
		mc := robot.MotorCalibration{
			ID:       i + 1,
			RangeMin: rm.minPositions[name],
			RangeMax: rm.maxPositions[name],
		}
		if name == robot.TurretMotor {
			mc.HomingOffset = mc.Denormalize(0)
		} else {
			mc.HomingOffset = rm.curPositions[name]
		}
		cal[name] = mc
	}
	return cal, nil
}

// Range recording TUI model
type rangeModel struct {
	motors       []robot.MotorName
	servoMap     map[int]*feetech.Servo
	curPositions map[robot.MotorName]int
	minPositions map[robot.MotorName]int
	maxPositions map[robot.MotorName]int
	quitting     bool
	aborted      bool
}

type tickMsg time.Time

func newRangeModel(
	motors []robot.MotorName,
	servoMap map[int]*feetech.Servo,
	curPositions, minPositions, maxPositions map[robot.MotorName]int,
) rangeModel {
	return rangeModel{
		motors:       motors,
		servoMap:     servoMap,
		curPositions: curPositions,
		minPositions: minPositions,
		maxPositions: maxPositions,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m rangeModel) Init() tea.Cmd {
	return tick()
}

func (m rangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.quitting = true
			return m, tea.Quit
		case "q", "ctrl+c":
			m.quitting = true
			m.aborted = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, name := range m.motors {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[name] = pos
			if pos < m.minPositions[name] {
				m.minPositions[name] = pos
			}
			if pos > m.maxPositions[name] {
				m.maxPositions[name] = pos
			}
		}
		return m, tick()
	}

	return m, nil
}

func (m rangeModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.motors))
	ranges := make([]int, 0, len(m.motors))
	for _, name := range m.motors {
		mc := robot.MotorCalibration{RangeMin: m.minPositions[name], RangeMax: m.maxPositions[name]}
		rangeSize := mc.RangeMax - mc.RangeMin
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			string(name),
			fmt.Sprintf("%d", m.curPositions[name]),
			fmt.Sprintf("%+.0f%%", mc.Normalize(m.curPositions[name])),
			fmt.Sprintf("%d", mc.RangeMin),
			fmt.Sprintf("%d", mc.RangeMax),
			fmt.Sprintf("%d", rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Pos", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1, 2:
				return tableCurrentStyle
			case 5:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done, q to abort"))

	return sb.String()
}
