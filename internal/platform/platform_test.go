package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIOS(t *testing.T) {
	testCases := []struct {
		name     string
		env      Environment
		expected bool
	}{
		{
			name:     "iPhone platform string",
			env:      Environment{Platform: "iPhone"},
			expected: true,
		},
		{
			name:     "iPad simulator",
			env:      Environment{Platform: "iPad Simulator"},
			expected: true,
		},
		{
			name: "iPadOS masquerading as desktop Safari",
			env: Environment{
				Platform:     "MacIntel",
				UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Safari/605.1.15",
				TouchSupport: true,
			},
			expected: true,
		},
		{
			name: "Actual Mac without touch",
			env: Environment{
				Platform:  "MacIntel",
				UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Safari/605.1.15",
			},
			expected: false,
		},
		{
			name: "Android phone with touch",
			env: Environment{
				Platform:     "Linux armv8l",
				UserAgent:    "Mozilla/5.0 (Linux; Android 14) Chrome/120.0",
				TouchSupport: true,
			},
			expected: false,
		},
		{
			name:     "Empty environment",
			env:      Environment{},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsIOS(tc.env))
		})
	}
}

func TestIsInstalledApp(t *testing.T) {
	assert.True(t, IsInstalledApp(Environment{DisplayModeStandalone: true}))
	assert.True(t, IsInstalledApp(Environment{NavigatorStandalone: true}))
	assert.False(t, IsInstalledApp(Environment{}))
}

func TestSupportsWebPush(t *testing.T) {
	assert.True(t, SupportsWebPush(Environment{HasServiceWorker: true, HasPushManager: true}))
	assert.False(t, SupportsWebPush(Environment{HasServiceWorker: true}))
	assert.False(t, SupportsWebPush(Environment{HasPushManager: true}))
	assert.False(t, SupportsWebPush(Environment{}))
}

func TestChoosePath(t *testing.T) {
	testCases := []struct {
		name     string
		env      Environment
		expected DeliveryPath
	}{
		{
			name: "installed iOS PWA uses the relay even when push is supported",
			env: Environment{
				Platform:              "iPhone",
				DisplayModeStandalone: true,
				HasServiceWorker:      true,
				HasPushManager:        true,
			},
			expected: PathRelay,
		},
		{
			name: "iOS in browser tab uses standard push when supported",
			env: Environment{
				Platform:         "iPhone",
				HasServiceWorker: true,
				HasPushManager:   true,
			},
			expected: PathWebPush,
		},
		{
			name: "desktop browser with push support",
			env: Environment{
				Platform:         "Win32",
				HasServiceWorker: true,
				HasPushManager:   true,
			},
			expected: PathWebPush,
		},
		{
			name: "installed iOS PWA without push support still uses the relay",
			env: Environment{
				Platform:            "iPad",
				NavigatorStandalone: true,
			},
			expected: PathRelay,
		},
		{
			name:     "no capabilities at all",
			env:      Environment{Platform: "Win32"},
			expected: PathNone,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ChoosePath(tc.env))
		})
	}
}

// The predicates must be deterministic: the same tuple always yields the same
// triple, no hidden state.
func TestDetectorIsPure(t *testing.T) {
	env := Environment{
		Platform:              "iPhone",
		UserAgent:             "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
		DisplayModeStandalone: true,
		TouchSupport:          true,
		HasServiceWorker:      true,
		HasPushManager:        true,
	}

	first := [3]bool{IsIOS(env), IsInstalledApp(env), SupportsWebPush(env)}
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, [3]bool{IsIOS(env), IsInstalledApp(env), SupportsWebPush(env)})
		assert.Equal(t, PathRelay, ChoosePath(env))
	}
}
