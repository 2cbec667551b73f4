package sim

import (
	"fmt"
	"slices"
	"strings"
)

// Hack is an attack that corrupts the drone's sensors or actuators.
type Hack string

const (
	// HackGPSSpoof moves the target the controller steers toward.
	HackGPSSpoof Hack = "GPS_SPOOF"
	// HackIMUDrift biases the controller's position error.
	HackIMUDrift Hack = "IMU_DRIFT"
	// HackGravity inflates sensed gravity so the motors over-lift.
	HackGravity Hack = "G_INJECT"
	// HackRhoNull zeroes sensed air density.
	HackRhoNull Hack = "RHO_NULL"
	// HackGain escalates steering gain and makes thrust shake.
	HackGain Hack = "GAIN_ATTACK"
	// HackGainInversion flips the sign of steering gain.
	HackGainInversion Hack = "GAIN_INVERSION"
	// HackBrownout sags the supply voltage.
	HackBrownout Hack = "VOLT_DROP"
	// HackPacketLoss drops a share of control updates.
	HackPacketLoss Hack = "NET_JAM"
	// HackMassSpoof reports a much heavier airframe.
	HackMassSpoof Hack = "MASS_SPOOF"
)

// Hacks lists every supported attack.
var Hacks = []Hack{
	HackGPSSpoof, HackIMUDrift, HackGravity, HackRhoNull, HackGain,
	HackGainInversion, HackBrownout, HackPacketLoss, HackMassSpoof,
}

// ParseHack resolves an attack by name, ignoring case.
func ParseHack(name string) (Hack, error) {
	h := Hack(strings.ToUpper(strings.TrimSpace(name)))
	if !slices.Contains(Hacks, h) {
		return "", fmt.Errorf("unknown hack %q", name)
	}
	return h, nil
}

// ParseHacks resolves every name, stopping at the first unknown one.
func ParseHacks(names []string) ([]Hack, error) {
	hacks := make([]Hack, 0, len(names))
	for _, name := range names {
		h, err := ParseHack(name)
		if err != nil {
			return nil, err
		}
		hacks = append(hacks, h)
	}
	return hacks, nil
}
