package auth

import "context"

// Availability describes whether biometric authentication can be used.
type Availability int

const (
	BiometricAvailable Availability = iota
	BiometricNoHardware
	BiometricHardwareUnavailable
	BiometricNoneEnrolled
	BiometricSecurityUpdateRequired
	BiometricUnsupported
	BiometricStatusUnknown
)

func (a Availability) String() string {
	switch a {
	case BiometricAvailable:
		return "AVAILABLE"
	case BiometricNoHardware:
		return "NO_HARDWARE"
	case BiometricHardwareUnavailable:
		return "HARDWARE_UNAVAILABLE"
	case BiometricNoneEnrolled:
		return "NONE_ENROLLED"
	case BiometricSecurityUpdateRequired:
		return "SECURITY_UPDATE_REQUIRED"
	case BiometricUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// Message is the user-facing explanation of a.
func (a Availability) Message() string {
	switch a {
	case BiometricAvailable:
		return "Biometric authentication is available"
	case BiometricNoHardware:
		return "No biometric hardware available on this device"
	case BiometricHardwareUnavailable:
		return "Biometric hardware is currently unavailable"
	case BiometricNoneEnrolled:
		return "No biometric credentials enrolled. Please set up first"
	case BiometricSecurityUpdateRequired:
		return "Security update required for biometric authentication"
	case BiometricUnsupported:
		return "Biometric authentication is not supported"
	default:
		return "Biometric status unknown"
	}
}

// Outcome is the terminal result of one biometric prompt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
	OutcomeError
)

type BiometricResult struct {
	Outcome Outcome
	Code    int
	Message string
}

type Prompt struct {
	Title    string
	Subtitle string
}

// Authenticator is the platform biometric (or equivalent) collaborator.
// Authenticate blocks until the user completes or abandons the prompt.
type Authenticator interface {
	Availability(ctx context.Context) Availability
	Authenticate(ctx context.Context, p Prompt) BiometricResult
}
