package ingest

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerial opens the device at name as 8N1 at the given baud rate.
func OpenSerial(name string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s at %d baud: %w", name, baud, err)
	}
	return port, nil
}

// ListPorts returns the serial devices present on the machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
