package smartcard

// Device abstracts an NFC reader/writer. Hardware bindings (libnfc, PC/SC)
// live in the agent process; this module only needs raw APDU exchange.
type Device interface {
	Close() error
	String() string
	Connection() string
	Transceive(txData []byte) ([]byte, error)
}

// DeviceHealthChecker is an optional interface for devices that support
// health/connectivity checks. Use type assertion to check for it.
type DeviceHealthChecker interface {
	IsHealthy() error
}

// Exchange sends a command and parses the response.
func Exchange(dev Device, cmd *Command) (*Response, error) {
	raw, err := dev.Transceive(cmd.Serialize())
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw)
}
