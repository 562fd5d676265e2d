package kernel

// Strategy names one of the two scheduling policies a Kernel can run under.
type Strategy int

const (
	RoundRobin Strategy = iota
	PriorityRoundRobin
)

func (s Strategy) String() string {
	switch s {
	case RoundRobin:
		return "round-robin"
	case PriorityRoundRobin:
		return "priority-round-robin"
	default:
		return "unknown"
	}
}

// policy is the scheduling-decision interface both strategies implement. It
// is handed a pointer to the live process table rather than the Kernel
// itself, matching the design notes' instruction that the queues hold
// indices into the table and nothing else.
type policy interface {
	// next picks the process id to run after current was preempted (or
	// never ran, at boot). It returns ok == false to mean "run idle".
	next(processes *[MaxProcesses]*processSlot, current ProcessID) (next ProcessID, ok bool)
	// resetProcess is the reset_for_process hook: called from both exec and
	// kill so the policy's internal queues stay consistent with the table.
	resetProcess(processes *[MaxProcesses]*processSlot, pid ProcessID)
	// resetAll is the reset_all hook: called on strategy switch (SetStrategy).
	resetAll(processes *[MaxProcesses]*processSlot)
}

func newPolicy(s Strategy) policy {
	switch s {
	case PriorityRoundRobin:
		return &priorityRoundRobinPolicy{}
	default:
		return &flatRoundRobinPolicy{}
	}
}

// flatRoundRobinPolicy is stateless beyond the process table itself,
// matching "Round-robin has no auxiliary state" in the data model.
type flatRoundRobinPolicy struct{}

func (flatRoundRobinPolicy) next(processes *[MaxProcesses]*processSlot, current ProcessID) (ProcessID, bool) {
	anyReady := false
	for pid := ProcessID(1); int(pid) < MaxProcesses; pid++ {
		if processes[pid].state == Ready {
			anyReady = true
			break
		}
	}
	if !anyReady {
		return 0, false
	}
	for i := 1; i < MaxProcesses; i++ {
		pid := ProcessID((int(current) + i) % MaxProcesses)
		if pid == IdleProcess {
			continue
		}
		if processes[pid].state == Ready {
			return pid, true
		}
	}
	if current != IdleProcess && processes[current].state == Ready {
		return current, true
	}
	return 0, false
}

func (flatRoundRobinPolicy) resetProcess(*[MaxProcesses]*processSlot, ProcessID) {}
func (flatRoundRobinPolicy) resetAll(*[MaxProcesses]*processSlot)               {}

// priorityRoundRobinPolicy holds the three per-level ready queues described
// in the data model, grounded on os_scheduling_strategies.c.
type priorityRoundRobinPolicy struct {
	queues [PriorityCount]readyQueue
}

func (p *priorityRoundRobinPolicy) next(processes *[MaxProcesses]*processSlot, current ProcessID) (ProcessID, bool) {
	// Step 1: requeue the just-preempted process at its current priority.
	// This must run before aging: aging promotes from the head of a lower
	// queue, and the just-preempted process needs to have rejoined its
	// queue first so a same-priority sibling already waiting there is not
	// skipped ahead of it.
	if current != IdleProcess && processes[current].state == Ready {
		p.queues[processes[current].priority].push(current)
	}
	// Step 2: aging. Promote one process per decision per level.
	if !p.queues[Normal].isEmpty() {
		pid, _ := p.queues[Normal].pop()
		p.queues[High].push(pid)
	}
	if !p.queues[Low].isEmpty() {
		pid, _ := p.queues[Low].pop()
		p.queues[Normal].push(pid)
	}
	// Step 3: pop highest non-empty queue.
	for level := High; level <= Low; level++ {
		if pid, ok := p.queues[level].pop(); ok {
			return pid, true
		}
	}
	// Step 4: nothing runnable.
	return 0, false
}

func (p *priorityRoundRobinPolicy) resetProcess(processes *[MaxProcesses]*processSlot, pid ProcessID) {
	for level := range p.queues {
		p.queues[level].remove(pid)
	}
	slot := processes[pid]
	if slot.state == Ready {
		p.queues[slot.priority].push(pid)
	}
}

func (p *priorityRoundRobinPolicy) resetAll(processes *[MaxProcesses]*processSlot) {
	for level := range p.queues {
		p.queues[level].clear()
	}
	for pid := ProcessID(1); int(pid) < MaxProcesses; pid++ {
		slot := processes[pid]
		if slot.state == Ready {
			p.queues[slot.priority].push(pid)
		}
	}
}
