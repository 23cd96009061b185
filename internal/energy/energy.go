// Package energy holds the derived values shown next to raw readings. Every
// view computes power, totals and anomaly flags through these functions so the
// numbers agree everywhere.
package energy

import (
	"strings"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
)

const (
	// DefaultThreshold applies when a device has no stored threshold or the
	// threshold could not be fetched.
	DefaultThreshold = 2500.0

	// DefaultTariff is the price of one kWh used for cost estimates.
	DefaultTariff = 2.20

	// AggregateSockets is the backend's combined row for all sockets.
	AggregateSockets = "sockets"
	socketPrefix     = "socket_"
)

type Status string

const (
	StatusNormal  Status = "normal"
	StatusAnomaly Status = "anomaly"
)

// Power is the instantaneous wattage of a reading.
func Power(r domain.Reading) float64 {
	return r.Current * r.Voltage
}

func TotalPower(readings []domain.Reading) float64 {
	var total float64
	for _, r := range readings {
		total += Power(r)
	}
	return total
}

// LiveReadings drops the per-socket rows. The backend reports both the
// individual sockets and a combined "sockets" row, so counting both would
// double the socket load.
func LiveReadings(readings []domain.Reading) []domain.Reading {
	live := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if strings.HasPrefix(r.Device, socketPrefix) {
			continue
		}
		live = append(live, r)
	}
	return live
}

func ResolveThreshold(d *domain.Device) float64 {
	if d == nil {
		return DefaultThreshold
	}
	return d.Threshold
}

func IsAnomaly(r domain.Reading, d *domain.Device) bool {
	return Power(r) > ResolveThreshold(d)
}

func ReadingStatus(r domain.Reading, d *domain.Device) Status {
	if IsAnomaly(r, d) {
		return StatusAnomaly
	}
	return StatusNormal
}

// FindDevice returns nil when id is not in devices.
func FindDevice(devices []domain.Device, id string) *domain.Device {
	for i := range devices {
		if devices[i].ID == id {
			return &devices[i]
		}
	}
	return nil
}

func AnomalyCount(readings []domain.Reading, devices []domain.Device) int {
	var n int
	for _, r := range readings {
		if IsAnomaly(r, FindDevice(devices, r.Device)) {
			n++
		}
	}
	return n
}

func EnergyForDevice(summary *domain.DailySummary, id string) float64 {
	if summary == nil {
		return 0
	}
	for _, s := range summary.DeviceBreakdown {
		if s.Device == id {
			return s.TotalEnergy
		}
	}
	return 0
}

func AverageCurrent(readings []domain.Reading) float64 {
	if len(readings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range readings {
		sum += r.Current
	}
	return sum / float64(len(readings))
}

func AverageVoltage(readings []domain.Reading) float64 {
	if len(readings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range readings {
		sum += r.Voltage
	}
	return sum / float64(len(readings))
}

// EstimatedCost prices the summary's total energy at rate per kWh. A
// non-positive rate falls back to DefaultTariff.
func EstimatedCost(summary *domain.DailySummary, rate float64) float64 {
	if summary == nil {
		return 0
	}
	if rate <= 0 {
		rate = DefaultTariff
	}
	return summary.TotalEnergy * rate
}

// DisplayName turns a device id such as "bulb_1" into "bulb 1".
func DisplayName(id string) string {
	if id == AggregateSockets {
		return "Combined Sockets"
	}
	return strings.Replace(id, "_", " ", 1)
}
