package session

import (
	"go.bug.st/serial"

	"github.com/terraguard/terraguard-go/internal/errors"
)

// DefaultBaudRate matches the sensor firmware's fixed line rate.
const DefaultBaudRate = 9600

// ScanPorts lists the serial ports currently present on the system.
func ScanPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.New(err).
			Component("session").
			Category(errors.CategorySerialPort).
			Context("operation", "scan-ports").
			Build()
	}
	return ports, nil
}

// OpenSerial opens device at the given baud rate with the 8N1 framing
// the sensor uses.
func OpenSerial(device string, baudRate int) (Transport, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, errors.New(err).
			Component("session").
			Category(errors.CategorySerialPort).
			Context("device", device).
			Context("baud_rate", baudRate).
			Build()
	}
	return port, nil
}
