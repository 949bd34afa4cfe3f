// Package sensor defines sensor readings and their SQLite persistence.
//
// Readings arrive over the bus as partial reports: a soil probe sends
// moisture, an environmental node sends temperature, humidity, gas, and
// flame. Measurement fields are therefore optional, and downstream
// consumers (alert evaluation, the time-series mirror) only see channels
// the device actually reported.
package sensor
