// Package influxdb mirrors sensor readings into a time-series bucket for
// dashboards and long-range history. The mirror is best-effort and
// optional; SQLite holds the authoritative copy of every reading.
package influxdb
