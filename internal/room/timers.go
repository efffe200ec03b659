package room

import "time"

// delayedTask is a schedulable broadcast (or any deferred step) with an
// explicit cancellation token. The timer goroutine only posts the task back
// into the inbox; the cancelled flag is read and written exclusively on the
// coordinator goroutine, so a cancelled task is dropped before it runs.
type delayedTask struct {
	fn        func()
	timer     *time.Timer
	cancelled bool
}

func (t *delayedTask) cancel() {
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// schedule arms fn to run on the coordinator goroutine after d.
func (c *Coordinator) schedule(d time.Duration, fn func()) *delayedTask {
	t := &delayedTask{fn: fn}
	t.timer = time.AfterFunc(d, func() {
		c.post(evScheduled{task: t})
	})
	return t
}

func (c *Coordinator) handleScheduled(ev evScheduled) {
	if ev.task.cancelled {
		return
	}
	ev.task.cancelled = true // one-shot
	ev.task.fn()
}
