package reactor

import (
	"context"
	"os/exec"
)

// Spawn starts cmd and arranges for done to be invoked on the reactor
// goroutine once the process exits, carrying its exit error (nil on
// success). This is the idiomatic Go equivalent of spec.md §4.A's
// SIGCHLD-driven child table: Go's os/exec already reaps the process via
// Wait() in a dedicated goroutine, so no self-pipe or per-signal
// "revisit" loop is needed — the goroutine is the registration, and
// posting the completion onto the reactor is what preserves the
// single-callback-thread invariant.
func (r *Reactor) Spawn(cmd *exec.Cmd, done func(error)) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		waitErr := cmd.Wait()
		r.Post(func() { done(waitErr) })
	}()
	return nil
}

// SpawnContext is like Spawn but also honours ctx: if ctx is cancelled
// before the process exits, the process is signalled to terminate
// (exec.CommandContext already arranges this) and done still fires with
// the resulting wait error once the process has actually gone away.
func (r *Reactor) SpawnContext(ctx context.Context, cmd *exec.Cmd, done func(error)) error {
	_ = ctx // cmd is expected to have been built with exec.CommandContext
	return r.Spawn(cmd, done)
}
