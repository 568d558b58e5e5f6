package xy

import (
	"errors"
	"fmt"
)

// Sentinel errors for the xy package.
var (
	// ErrConfiguration indicates an invalid property value was rejected.
	ErrConfiguration = errors.New("xy: invalid configuration")

	// ErrTypeMismatch indicates a component lacks a required capability.
	ErrTypeMismatch = errors.New("xy: type mismatch")

	// ErrDevice indicates a failure at the device boundary.
	ErrDevice = errors.New("xy: device error")
)

// DeviceError wraps a failure reported by a position device.
type DeviceError struct {
	// Op is the operation that failed (e.g. "poll", "read").
	Op string

	// Device names the device, if known.
	Device string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	name := e.Device
	if name == "" {
		name = "device"
	}
	if e.Cause != nil {
		return fmt.Sprintf("xy: %s %s: %v", name, e.Op, e.Cause)
	}
	return fmt.Sprintf("xy: %s %s failed", name, e.Op)
}

// Unwrap returns the underlying cause.
func (e *DeviceError) Unwrap() error {
	return e.Cause
}

// Is reports ErrDevice as matching every DeviceError.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDevice
}

// NewDeviceError creates a DeviceError.
func NewDeviceError(device, op string, cause error) *DeviceError {
	return &DeviceError{Op: op, Device: device, Cause: cause}
}

// IsDeviceError returns true if err came from the device boundary.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrDevice)
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

func typeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrTypeMismatch}, args...)...)
}
