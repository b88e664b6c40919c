// Package solarflux implements a telemetry collector for solar
// micro-inverters.
//
// # Architecture
//
// The collector is structured into several key packages:
//   - inverter: authenticated client and parser for the device's status page
//   - reading: normalized statistics model and validation
//   - influx: InfluxDB point serialization and writes
//   - retry: bounded backoff around the network boundaries
//   - collector: the polling loop driving one cycle per sample period
//   - monitor: cycle tracking, Prometheus metrics, status HTTP surface
//   - config: environment configuration
//
// Key Behaviors
//
//   - One cycle per tick:
//     Each sample period the collector fetches the status page, parses
//     it, validates all 23 tracked statistics, and writes exactly one
//     point. Cycles never overlap and never span ticks.
//
//   - Failure isolation:
//     A failed cycle is classified, logged, and counted; the next tick
//     proceeds normally. Only persistent credential rejection stops the
//     process.
//
//   - All-or-nothing readings:
//     A point is only written when every tracked field parsed and
//     passed its plausibility range. Partial data never reaches the
//     store.
//
// For more information about specific packages, see their respective
// documentation.
package solarflux
