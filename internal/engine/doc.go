// Package engine is the composition root for plan mode. It owns the
// wiring between configuration, the SQLite store, the event bus, the
// session registry, and the plan manager, plus the startup restore of
// plans that were still proposed or executing when the process last
// stopped.
package engine
