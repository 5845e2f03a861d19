package auth

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/securebank/internal/common"
)

// SecurityLevel grades the device posture. Levels are ordered.
type SecurityLevel int

const (
	LevelNone SecurityLevel = iota
	LevelLow
	LevelMedium
	LevelHigh
)

func (l SecurityLevel) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	default:
		return "NONE"
	}
}

type DeviceStatus struct {
	DeviceSecure       bool
	Rooted             bool
	ScreenLock         bool
	BiometricAvailable bool
}

// IsSecure holds when the device is secured, has a screen lock and is not
// rooted.
func (s DeviceStatus) IsSecure() bool {
	return s.DeviceSecure && s.ScreenLock && !s.Rooted
}

func (s DeviceStatus) Level() SecurityLevel {
	switch {
	case s.IsSecure() && s.BiometricAvailable:
		return LevelHigh
	case s.IsSecure():
		return LevelMedium
	case s.ScreenLock:
		return LevelLow
	default:
		return LevelNone
	}
}

// DeviceProbe reports the current device posture.
type DeviceProbe interface {
	Status(ctx context.Context) DeviceStatus
}

// HostProbe inspects the host process. Screen lock and device encryption
// cannot be observed from a terminal program, so they come from settings.
type HostProbe struct {
	ScreenLock   bool
	DeviceSecure bool
	Biometric    Authenticator
	euid         func() int
}

func NewHostProbe(screenLock, deviceSecure bool, bio Authenticator) *HostProbe {
	return &HostProbe{ScreenLock: screenLock, DeviceSecure: deviceSecure, Biometric: bio, euid: effectiveUID}
}

func (p *HostProbe) Status(ctx context.Context) DeviceStatus {
	s := DeviceStatus{
		ScreenLock:   p.ScreenLock,
		DeviceSecure: p.DeviceSecure,
		Rooted:       p.euid() == 0,
	}
	if p.Biometric != nil {
		s.BiometricAvailable = p.Biometric.Availability(ctx) == BiometricAvailable
	}
	return s
}

// RequireLevel fails with ErrDeviceInsecure when the probe reports a level
// below min.
func RequireLevel(ctx context.Context, probe DeviceProbe, min SecurityLevel) error {
	got := probe.Status(ctx).Level()
	if got < min {
		return common.SecurityError("device", fmt.Errorf("%w: have %s, need %s", common.ErrDeviceInsecure, got, min))
	}
	return nil
}
