// Package session tracks the live conversation sessions of this
// process and adapts their drivers to the plan manager's delivery
// interface. The engine never owns the agent loop; it only needs a way
// to hand instructions to it and to read its streaming flag.
package session
