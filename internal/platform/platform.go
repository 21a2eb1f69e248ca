package platform

import "strings"

// Environment describes the capabilities a client device reported for itself.
// All predicates in this package are pure functions of this value.
type Environment struct {
	UserAgent             string
	Platform              string
	DisplayModeStandalone bool
	NavigatorStandalone   bool
	TouchSupport          bool
	HasServiceWorker      bool
	HasPushManager        bool
}

// DeliveryPath is the notification path selected for a device.
type DeliveryPath string

const (
	// PathWebPush is browser-native push via a VAPID key pair.
	PathWebPush DeliveryPath = "webpush"
	// PathRelay is the polling relay fallback for installed iOS PWAs.
	PathRelay DeliveryPath = "relay"
	// PathNone means no notification mechanism is available.
	PathNone DeliveryPath = "none"
)

var iosPlatforms = map[string]bool{
	"iPad Simulator":   true,
	"iPhone Simulator": true,
	"iPod Simulator":   true,
	"iPad":             true,
	"iPhone":           true,
	"iPod":             true,
}

// IsIOS reports whether the device identifies as iOS/iPadOS. iPadOS 13+
// masquerades as desktop Safari, so a Mac user agent combined with touch
// support also counts.
func IsIOS(env Environment) bool {
	if iosPlatforms[env.Platform] {
		return true
	}
	return strings.Contains(env.UserAgent, "Mac") && env.TouchSupport
}

// IsInstalledApp reports whether the PWA runs installed (home screen /
// standalone display mode).
func IsInstalledApp(env Environment) bool {
	return env.DisplayModeStandalone || env.NavigatorStandalone
}

// SupportsWebPush reports whether the browser exposes both capabilities the
// standard push path needs: service worker registration and a push manager.
func SupportsWebPush(env Environment) bool {
	return env.HasServiceWorker && env.HasPushManager
}

// ChoosePath selects the notification delivery path for a device. Installed
// iOS PWAs must use the polling relay; iOS browsers do not deliver standard
// web push reliably there. Otherwise standard push is used when supported.
func ChoosePath(env Environment) DeliveryPath {
	if IsIOS(env) && IsInstalledApp(env) {
		return PathRelay
	}
	if SupportsWebPush(env) {
		return PathWebPush
	}
	return PathNone
}
