package reading

import "time"

// RawStats holds the decoded variables from one inverter status page,
// keyed by the device's variable name.
type RawStats map[string]string

// Reading represents one polling cycle's normalized inverter statistics.
// All fields are validated; a partially populated Reading never exists.
type Reading struct {
	Timestamp time.Time

	PowerRated    int64   // W
	PowerCurrent  float64 // W
	YieldToday    float64 // kWh
	YieldTotal    float64 // kWh
	GridVoltage   float64 // V
	GridCurrent   float64 // A
	GridFrequency float64 // Hz
	PV1Voltage    float64 // V
	PV1Current    float64 // A
	PV1Power      float64 // W
	PV2Voltage    float64 // V
	PV2Current    float64 // A
	PV2Power      float64 // W
	Temperature   float64 // °C
	Efficiency    float64 // %
	PowerFactor   float64
	BusVoltage    float64 // V
	LastUpdated   int64   // seconds since the device last refreshed its stats
	AlertCount    int64
	SignalQuality int64 // WiFi signal strength, %
	RemoteServerA int64 // 0/1, vendor cloud endpoint reachable
	RemoteServerB int64
	RemoteServerC int64
}

// Fields returns the measurement fields keyed by their storage name.
func (r *Reading) Fields() map[string]interface{} {
	return map[string]interface{}{
		"power_rated":     r.PowerRated,
		"power_current":   r.PowerCurrent,
		"yield_today":     r.YieldToday,
		"yield_total":     r.YieldTotal,
		"grid_voltage":    r.GridVoltage,
		"grid_current":    r.GridCurrent,
		"grid_frequency":  r.GridFrequency,
		"pv1_voltage":     r.PV1Voltage,
		"pv1_current":     r.PV1Current,
		"pv1_power":       r.PV1Power,
		"pv2_voltage":     r.PV2Voltage,
		"pv2_current":     r.PV2Current,
		"pv2_power":       r.PV2Power,
		"temperature":     r.Temperature,
		"efficiency":      r.Efficiency,
		"power_factor":    r.PowerFactor,
		"bus_voltage":     r.BusVoltage,
		"last_updated":    r.LastUpdated,
		"alert_count":     r.AlertCount,
		"signal_quality":  r.SignalQuality,
		"remote_server_a": r.RemoteServerA,
		"remote_server_b": r.RemoteServerB,
		"remote_server_c": r.RemoteServerC,
	}
}
