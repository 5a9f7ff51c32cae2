// Package plan owns the per-session plan lifecycle: the PlanState
// record, the Manager that applies every transition, and the execution
// driver that delivers instructions to the conversation driver.
//
// The Manager keeps one PlanState per session in an in-memory map that
// is the single source of truth while the process is alive. Every
// transition goes through SetState, which broadcasts a state_changed
// event under the state lock (so observers see transitions in order)
// and persists the new state in a detached, best-effort write. The
// persisted copy only exists so proposed or executing plans survive a
// restart.
//
// Instruction delivery reads the conversation driver's own streaming
// flag to choose between a fresh prompt and a queued follow-up. The
// driver serializes follow-ups behind the current turn, which is what
// keeps at most one instruction in flight per session.
package plan
