package bridge

import "math"

// Colour temperature bounds used when a value cannot be converted.
const (
	// DefaultMinKelvin is the warmest colour temperature the devices accept.
	DefaultMinKelvin = 2700

	// DefaultMaxKelvin is the coolest colour temperature the devices accept.
	DefaultMaxKelvin = 6500
)

// Brightness scale bounds.
const (
	// maxHostBrightness is the top of the consumer-facing 0-255 scale.
	maxHostBrightness = 255

	// maxRawBrightness is the top of the device-native 0-100 scale.
	maxRawBrightness = 100
)

// KelvinToMired converts a Kelvin colour temperature to mireds.
//
// Returns a rounded integer mired value. Falls back to the mired
// equivalent of DefaultMinKelvin on non-positive input.
func KelvinToMired(kelvin int) int {
	if kelvin <= 0 {
		kelvin = DefaultMinKelvin
	}
	return int(math.Round(1_000_000 / float64(kelvin)))
}

// MiredToKelvin converts a mired colour temperature to Kelvin.
//
// Returns a rounded integer Kelvin value. Falls back to DefaultMinKelvin
// on non-positive input.
func MiredToKelvin(mired int) int {
	if mired <= 0 {
		return DefaultMinKelvin
	}
	return int(math.Round(1_000_000 / float64(mired)))
}

// HostToRawBrightness converts consumer-scale brightness (0-255) to the
// device's native 0-100 scale. Out-of-range input is clamped.
func HostToRawBrightness(host int) int {
	if host < 0 {
		host = 0
	}
	if host > maxHostBrightness {
		host = maxHostBrightness
	}
	return int(math.Round(float64(host) * maxRawBrightness / maxHostBrightness))
}

// RawToHostBrightness converts device-scale brightness (0-100) to the
// consumer-facing 0-255 scale. Out-of-range input is clamped.
func RawToHostBrightness(raw int) int {
	if raw < 0 {
		raw = 0
	}
	if raw > maxRawBrightness {
		raw = maxRawBrightness
	}
	return int(math.Round(float64(raw) * maxHostBrightness / maxRawBrightness))
}
