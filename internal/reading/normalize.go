package reading

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValidationKind classifies why a raw value could not become a Reading field.
type ValidationKind int

const (
	FieldMissing ValidationKind = iota
	FieldOutOfRange
	TypeMismatch
)

func (k ValidationKind) String() string {
	switch k {
	case FieldMissing:
		return "field_missing"
	case FieldOutOfRange:
		return "field_out_of_range"
	case TypeMismatch:
		return "type_mismatch"
	}
	return "unknown"
}

// ValidationError reports the first field that failed normalization.
// It names the Reading field, not the device variable.
type ValidationError struct {
	Field string
	Kind  ValidationKind
	Value string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case FieldMissing:
		return fmt.Sprintf("field %s: missing or empty", e.Field)
	case FieldOutOfRange:
		return fmt.Sprintf("field %s: value %s out of range", e.Field, e.Value)
	default:
		return fmt.Sprintf("field %s: cannot parse %q as a number", e.Field, e.Value)
	}
}

// Transient reports whether retrying could succeed. A validation failure
// never clears on retry within the same cycle.
func (e *ValidationError) Transient() bool { return false }

type fieldKind int

const (
	fieldFloat fieldKind = iota
	fieldInt
)

type fieldSpec struct {
	name   string // storage field name
	rawKey string // device variable name
	kind   fieldKind
	min    float64
	max    float64
	strip  string // suffix to remove before parsing
	assign func(*Reading, float64)
}

// Ranges are device limits with headroom, not electrical nominals.
// Glitched firmware pages carry values like -1 or 65535.
var fieldSpecs = []fieldSpec{
	{name: "power_rated", rawKey: "webdata_rate_p", kind: fieldInt, min: 0, max: 10000,
		assign: func(r *Reading, v float64) { r.PowerRated = int64(v) }},
	{name: "power_current", rawKey: "webdata_now_p", kind: fieldFloat, min: 0, max: 10000,
		assign: func(r *Reading, v float64) { r.PowerCurrent = v }},
	{name: "yield_today", rawKey: "webdata_today_e", kind: fieldFloat, min: 0, max: 100,
		assign: func(r *Reading, v float64) { r.YieldToday = v }},
	{name: "yield_total", rawKey: "webdata_total_e", kind: fieldFloat, min: 0, max: 1e6,
		assign: func(r *Reading, v float64) { r.YieldTotal = v }},
	{name: "grid_voltage", rawKey: "webdata_grid_v", kind: fieldFloat, min: 0, max: 300,
		assign: func(r *Reading, v float64) { r.GridVoltage = v }},
	{name: "grid_current", rawKey: "webdata_grid_c", kind: fieldFloat, min: 0, max: 63,
		assign: func(r *Reading, v float64) { r.GridCurrent = v }},
	{name: "grid_frequency", rawKey: "webdata_grid_f", kind: fieldFloat, min: 45, max: 65,
		assign: func(r *Reading, v float64) { r.GridFrequency = v }},
	{name: "pv1_voltage", rawKey: "webdata_pv1_v", kind: fieldFloat, min: 0, max: 120,
		assign: func(r *Reading, v float64) { r.PV1Voltage = v }},
	{name: "pv1_current", rawKey: "webdata_pv1_c", kind: fieldFloat, min: 0, max: 25,
		assign: func(r *Reading, v float64) { r.PV1Current = v }},
	{name: "pv1_power", rawKey: "webdata_pv1_p", kind: fieldFloat, min: 0, max: 2000,
		assign: func(r *Reading, v float64) { r.PV1Power = v }},
	{name: "pv2_voltage", rawKey: "webdata_pv2_v", kind: fieldFloat, min: 0, max: 120,
		assign: func(r *Reading, v float64) { r.PV2Voltage = v }},
	{name: "pv2_current", rawKey: "webdata_pv2_c", kind: fieldFloat, min: 0, max: 25,
		assign: func(r *Reading, v float64) { r.PV2Current = v }},
	{name: "pv2_power", rawKey: "webdata_pv2_p", kind: fieldFloat, min: 0, max: 2000,
		assign: func(r *Reading, v float64) { r.PV2Power = v }},
	{name: "temperature", rawKey: "webdata_temp", kind: fieldFloat, min: -40, max: 125,
		assign: func(r *Reading, v float64) { r.Temperature = v }},
	{name: "efficiency", rawKey: "webdata_eff", kind: fieldFloat, min: 0, max: 100,
		assign: func(r *Reading, v float64) { r.Efficiency = v }},
	{name: "power_factor", rawKey: "webdata_pf", kind: fieldFloat, min: -1, max: 1,
		assign: func(r *Reading, v float64) { r.PowerFactor = v }},
	{name: "bus_voltage", rawKey: "webdata_bus_v", kind: fieldFloat, min: 0, max: 600,
		assign: func(r *Reading, v float64) { r.BusVoltage = v }},
	{name: "last_updated", rawKey: "webdata_utime", kind: fieldInt, min: 0, max: 604800,
		assign: func(r *Reading, v float64) { r.LastUpdated = int64(v) }},
	{name: "alert_count", rawKey: "webdata_alarm_cnt", kind: fieldInt, min: 0, max: 255,
		assign: func(r *Reading, v float64) { r.AlertCount = int64(v) }},
	{name: "signal_quality", rawKey: "cover_sta_rssi", kind: fieldInt, min: 0, max: 100, strip: "%",
		assign: func(r *Reading, v float64) { r.SignalQuality = int64(v) }},
	{name: "remote_server_a", rawKey: "status_a", kind: fieldInt, min: 0, max: 1,
		assign: func(r *Reading, v float64) { r.RemoteServerA = int64(v) }},
	{name: "remote_server_b", rawKey: "status_b", kind: fieldInt, min: 0, max: 1,
		assign: func(r *Reading, v float64) { r.RemoteServerB = int64(v) }},
	{name: "remote_server_c", rawKey: "status_c", kind: fieldInt, min: 0, max: 1,
		assign: func(r *Reading, v float64) { r.RemoteServerC = int64(v) }},
}

// Normalize converts raw stats into a validated Reading. The first field
// that is missing, unparsable, or implausible fails the whole conversion.
// The Reading's timestamp is the process time at normalization, in UTC;
// the device clock is never trusted.
func Normalize(raw RawStats) (*Reading, error) {
	r := &Reading{}
	for _, spec := range fieldSpecs {
		s, ok := raw[spec.rawKey]
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			// The device occasionally serves a page with blank values
			// while it refreshes internally.
			return nil, &ValidationError{Field: spec.name, Kind: FieldMissing}
		}
		if spec.strip != "" {
			s = strings.TrimSuffix(s, spec.strip)
		}

		var v float64
		switch spec.kind {
		case fieldInt:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, &ValidationError{Field: spec.name, Kind: TypeMismatch, Value: s}
			}
			v = float64(n)
		default:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, &ValidationError{Field: spec.name, Kind: TypeMismatch, Value: s}
			}
			v = f
		}

		// ParseFloat accepts "NaN", which compares false against any
		// bound; it must never reach a Reading.
		if math.IsNaN(v) || v < spec.min || v > spec.max {
			return nil, &ValidationError{Field: spec.name, Kind: FieldOutOfRange, Value: s}
		}
		spec.assign(r, v)
	}

	r.Timestamp = time.Now().UTC()
	return r, nil
}
