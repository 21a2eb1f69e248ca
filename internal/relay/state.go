package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotRegistered is returned when no relay registration exists on this device.
var ErrNotRegistered = errors.New("relay: device not registered")

// DeviceState is the device-local half of a relay registration. The device ID
// must stay stable for the lifetime of the registration so the relay and the
// local poller agree on identity.
type DeviceState struct {
	DeviceID string `json:"deviceId"`
	Token    string `json:"token"`
}

// StateStore persists the relay registration in a local JSON file, the
// device-side analogue of browser localStorage. Single active writer per
// device is assumed; there is no file lock.
type StateStore struct {
	path string
}

// NewStateStore creates a state store at the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Load reads the stored registration. Returns ErrNotRegistered when the file
// does not exist or holds no device ID.
func (s *StateStore) Load() (*DeviceState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to read relay state: %w", err)
	}

	var state DeviceState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse relay state: %w", err)
	}
	if state.DeviceID == "" {
		return nil, ErrNotRegistered
	}
	return &state, nil
}

// Save overwrites the stored registration.
func (s *StateStore) Save(state *DeviceState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal relay state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write relay state: %w", err)
	}
	return nil
}

// Clear removes the stored registration. Missing state is not an error.
func (s *StateStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear relay state: %w", err)
	}
	return nil
}
