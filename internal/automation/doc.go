// Package automation evaluates condition-action rules on a fixed schedule.
//
// A rule holds a small typed condition vocabulary (time of day, latest
// sensor metric, device status attribute) combined with AND or OR, and an
// action list run through the scene executor when the rule fires. This is
// deliberately not a general rules engine: three condition kinds and five
// operators cover residential automations, and anything richer belongs in
// an external system.
//
// The Engine polls active rules at a fixed interval and fires a rule on
// the tick its condition first becomes true, not on every tick it stays
// true. Conditions over missing data evaluate false rather than erroring.
package automation
