package hardware

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/go-daq/canbus"
	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/mathutil"
)

// Motor controller CAN identifiers use the 29-bit FRC layout:
//
//	device type (5) | manufacturer (8) | API class (6) | API index (4) | device id (6)
const (
	canDeviceMotorController = 2
	canManufacturerREV       = 5

	canAPIDutyCycle   = 0<<4 | 2  // class 0, index 2
	canAPISetPosition = 11<<4 | 2 // class 11, index 2
	canAPIStatus2     = 6<<4 | 2  // class 6, index 2: position and velocity

	canDeviceIDMask = 0x3F
)

func canID(api uint32, deviceID uint8) uint32 {
	return canDeviceMotorController<<24 | canManufacturerREV<<16 | api<<6 | uint32(deviceID)&canDeviceIDMask
}

// EncodeDutyCycle builds the frame that sets a controller's output.
func EncodeDutyCycle(deviceID uint8, output float64) canbus.Frame {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, math.Float32bits(float32(output)))
	return canbus.Frame{ID: canID(canAPIDutyCycle, deviceID), Data: data, Kind: canbus.EFF}
}

// EncodeSetPosition builds the frame that re-bases a controller's encoder, in
// motor rotations.
func EncodeSetPosition(deviceID uint8, rotations float64) canbus.Frame {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, math.Float32bits(float32(rotations)))
	return canbus.Frame{ID: canID(canAPISetPosition, deviceID), Data: data, Kind: canbus.EFF}
}

// DecodePosition extracts the encoder position, in motor rotations, from a
// periodic status frame.
func DecodePosition(f canbus.Frame) (deviceID uint8, rotations float64, ok bool) {
	if f.Kind != canbus.EFF || len(f.Data) < 4 {
		return 0, 0, false
	}
	if f.ID&^canDeviceIDMask != canID(canAPIStatus2, 0) {
		return 0, 0, false
	}
	bits := binary.LittleEndian.Uint32(f.Data[:4])
	return uint8(f.ID & canDeviceIDMask), float64(math.Float32frombits(bits)), true
}

type canSocket interface {
	Send(msg canbus.Frame) (int, error)
	Recv() (canbus.Frame, error)
	Close() error
}

// CANBus owns a SocketCAN interface shared by the arm's motor controllers. A
// background receiver caches the latest encoder position reported by each device.
type CANBus struct {
	sock   canSocket
	logger golog.Logger

	mu        sync.Mutex
	isOpen    bool
	rotations map[uint8]float64
	stop      chan struct{}
	done      chan struct{}
}

// Receive errors back off from recvBackoffMin, doubling up to recvBackoffMax.
const (
	recvBackoffMin = 10 * time.Millisecond
	recvBackoffMax = time.Second
)

// OpenCANBus binds a socket to iface (for example "can0") and starts receiving
// status frames.
func OpenCANBus(iface string, logger golog.Logger) (*CANBus, error) {
	sock, err := canbus.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CAN socket")
	}
	if err := sock.Bind(iface); err != nil {
		sock.Close()
		return nil, errors.Wrapf(err, "failed to bind CAN socket to %s", iface)
	}
	logger.Infow("CAN bus open", "interface", iface)
	return newCANBus(sock, logger), nil
}

func newCANBus(sock canSocket, logger golog.Logger) *CANBus {
	b := &CANBus{
		sock:      sock,
		logger:    logger,
		isOpen:    true,
		rotations: make(map[uint8]float64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.receive()
	return b
}

// Close stops the receiver and closes the socket.
func (b *CANBus) Close() error {
	b.mu.Lock()
	if !b.isOpen {
		b.mu.Unlock()
		return nil
	}
	b.isOpen = false
	b.mu.Unlock()

	close(b.stop)
	err := b.sock.Close()
	<-b.done
	return err
}

func (b *CANBus) receive() {
	defer close(b.done)
	var failures int
	backoff := recvBackoffMin
	for {
		frame, err := b.sock.Recv()
		if err != nil {
			if !b.open() {
				return
			}
			if failures == 0 {
				b.logger.Warnw("CAN receive error, backing off", "error", err)
			}
			failures++
			select {
			case <-b.stop:
				return
			case <-time.After(backoff):
			}
			backoff = min(2*backoff, recvBackoffMax)
			continue
		}
		if failures > 0 {
			b.logger.Infow("CAN receive recovered", "failures", failures)
			failures = 0
			backoff = recvBackoffMin
		}
		id, rot, ok := DecodePosition(frame)
		if !ok {
			continue
		}
		b.mu.Lock()
		b.rotations[id] = rot
		b.mu.Unlock()
	}
}

func (b *CANBus) open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isOpen
}

func (b *CANBus) send(frame canbus.Frame) error {
	if !b.open() {
		return ErrNotOpen
	}
	if _, err := b.sock.Send(frame); err != nil {
		return errors.Wrapf(err, "failed to send frame 0x%08x", frame.ID)
	}
	return nil
}

// rotationsFor returns NaN until a status frame from the device has arrived.
func (b *CANBus) rotationsFor(id uint8) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	rot, ok := b.rotations[id]
	if !ok {
		return math.NaN()
	}
	return rot
}

func (b *CANBus) setRotations(id uint8, rot float64) {
	b.mu.Lock()
	b.rotations[id] = rot
	b.mu.Unlock()
}

// Motor returns the motor handle for a device id.
func (b *CANBus) Motor(deviceID uint8) *CANMotor {
	return &CANMotor{bus: b, id: deviceID}
}

// Encoder returns the built-in encoder handle for a device id.
func (b *CANBus) Encoder(deviceID uint8) *CANEncoder {
	return &CANEncoder{bus: b, id: deviceID, factor: 1}
}

// CANMotor drives one controller in duty-cycle mode.
type CANMotor struct {
	bus      *CANBus
	id       uint8
	output   float64
	inverted bool
}

func (m *CANMotor) Set(output float64) error {
	m.output = mathutil.Clamp(output, -1, 1)
	v := m.output
	if m.inverted {
		v = -v
	}
	return m.bus.send(EncodeDutyCycle(m.id, v))
}

func (m *CANMotor) Get() float64 {
	return m.output
}

func (m *CANMotor) SetInverted(inverted bool) {
	m.inverted = inverted
}

// CANEncoder reads a controller's integrated encoder, scaled by the conversion
// factor.
type CANEncoder struct {
	bus    *CANBus
	id     uint8
	factor float64
}

func (e *CANEncoder) Position() float64 {
	return e.bus.rotationsFor(e.id) * e.factor
}

func (e *CANEncoder) SetPosition(position float64) {
	rot := position / e.factor
	e.bus.setRotations(e.id, rot)
	if err := e.bus.send(EncodeSetPosition(e.id, rot)); err != nil {
		e.bus.logger.Warnw("encoder set position failed", "device", e.id, "error", err)
	}
}

func (e *CANEncoder) SetPositionConversionFactor(factor float64) {
	e.factor = factor
}
