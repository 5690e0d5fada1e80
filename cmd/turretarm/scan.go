package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/turretarm/pkg/robot"
)

type ScanCommand struct {
	Timeout time.Duration `long:"timeout" default:"2s" description:"Scan time per port"`
}

type rigInfo struct {
	port   string
	servos []feetech.FoundServo
}

func (c *ScanCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Serial ports"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))

	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	for _, port := range ports {
		fmt.Printf("  %s\n", port)
	}
	fmt.Println()

	fmt.Println("Scanning for bench rigs...")
	rigs := findRigs(c.Timeout)
	if len(rigs) == 0 {
		fmt.Println("No bench rigs found.")
		fmt.Println("Make sure the servo bus is connected and powered on.")
		return nil
	}
	fmt.Println()
	fmt.Println(successStyle.Render(fmt.Sprintf("Found %d bench rig(s).", len(rigs))))
	fmt.Println("Record their ranges with: " + headerStyle.Render("turretarm setup --port "+rigs[0].port))
	return nil
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

func findRigs(timeout time.Duration) []rigInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var rigs []rigInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := openBus(port)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		servos, err := bus.Scan(ctx, 1, len(robot.AllMotors()))
		cancel()
		bus.Close()
		if err != nil {
			continue
		}

		if isBenchRig(servos) {
			fmt.Printf("  Found bench rig on %s\n", port)
			rigs = append(rigs, rigInfo{port: port, servos: servos})
		} else if len(servos) > 0 {
			fmt.Printf("  %s: %d servo(s), not a bench rig\n", port, len(servos))
		}
	}

	return rigs
}

// isBenchRig reports whether servos are exactly the bench rig's ids 1-3.
func isBenchRig(servos []feetech.FoundServo) bool {
	n := len(robot.AllMotors())
	if len(servos) != n {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for i := 1; i <= n; i++ {
		if !ids[i] {
			return false
		}
	}

	return true
}
