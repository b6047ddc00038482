package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errAlreadyRegistered = errors.New("driver already registered")

// Factory opens a Client session for one device.
type Factory func(ctx context.Context, deviceID, accessToken string) (Client, error)

var (
	driverMu sync.Mutex
	drivers  = make(map[string]Factory)
)

// RegisterDriver makes a transport available under a name. Drivers register
// themselves from an init func and are selected by configuration.
func RegisterDriver(name string, factory Factory) error {
	driverMu.Lock()
	defer driverMu.Unlock()
	if _, ok := drivers[name]; ok {
		return fmt.Errorf("%w: %s", errAlreadyRegistered, name)
	}
	drivers[name] = factory
	return nil
}

// Connect opens a session using the named driver.
func Connect(ctx context.Context, driver, deviceID, accessToken string) (Client, error) {
	driverMu.Lock()
	factory, ok := drivers[driver]
	driverMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown driver %q", ErrDeviceUnreachable, driver)
	}
	return factory(ctx, deviceID, accessToken)
}
