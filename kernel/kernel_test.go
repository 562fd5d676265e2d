package kernel

import (
	"testing"
	"time"
)

// blockingIdle never returns, the same contract a real idle program must
// honor. Boot hands it the first turn on a real goroutine, so a test idle
// that returned immediately would race dispatcherWrapper's "unexpected
// return from idle" fatal path against the test's own assertions.
func blockingIdle() {
	select {}
}

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	return NewKernel(blockingIdle, func(format string, args ...interface{}) {
		t.Fatalf("unexpected fatal: "+format, args...)
	})
}

func TestRegisterProgramAssignsDistinctIDs(t *testing.T) {
	k := newTestKernel(t)
	first, err := k.RegisterProgram(func() {}, false)
	if err != nil {
		t.Fatalf("register first: %v", err)
	}
	second, err := k.RegisterProgram(func() {}, true)
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct ids, got %d and %d", first, second)
	}
	if first == IdleProgram || second == IdleProgram {
		t.Fatalf("RegisterProgram must never hand out the idle program id")
	}
}

func TestRegisterProgramFullRegistryFails(t *testing.T) {
	k := newTestKernel(t)
	for i := 1; i < MaxPrograms; i++ {
		if _, err := k.RegisterProgram(func() {}, false); err != nil {
			t.Fatalf("register #%d: unexpected error %v", i, err)
		}
	}
	if _, err := k.RegisterProgram(func() {}, false); err != ErrProgramRegistryFull {
		t.Fatalf("expected ErrProgramRegistryFull, got %v", err)
	}
}

func TestExecRejectsUnregisteredProgram(t *testing.T) {
	k := newTestKernel(t)
	if _, err := k.Exec(ProgramID(7), Normal); err != ErrInvalidProgram {
		t.Fatalf("expected ErrInvalidProgram, got %v", err)
	}
}

func TestExecFillsProcessTableThenFails(t *testing.T) {
	k := newTestKernel(t)
	if _, err := k.Exec(IdleProgram, Low); err != nil {
		t.Fatalf("exec idle: %v", err)
	}
	prog, err := k.RegisterProgram(func() {}, false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 1; i < MaxProcesses; i++ {
		if _, err := k.Exec(prog, Normal); err != nil {
			t.Fatalf("exec #%d: unexpected error %v", i, err)
		}
	}
	if got := k.ActiveCount(); got != MaxProcesses {
		t.Fatalf("expected %d active processes, got %d", MaxProcesses, got)
	}
	if _, err := k.Exec(prog, Normal); err != ErrNoFreeProcess {
		t.Fatalf("expected ErrNoFreeProcess, got %v", err)
	}
}

func TestKillRefusesIdleAndInvalidIDs(t *testing.T) {
	k := newTestKernel(t)
	if k.Kill(IdleProcess) {
		t.Fatalf("Kill must refuse the idle process")
	}
	if k.Kill(ProcessID(MaxProcesses)) {
		t.Fatalf("Kill must refuse an out-of-range process id")
	}
	if k.Kill(ProcessID(3)) {
		t.Fatalf("Kill must refuse an already-unused process id")
	}
}

func TestKillFreesSlotForReuse(t *testing.T) {
	k := newTestKernel(t)
	if _, err := k.Exec(IdleProgram, Low); err != nil {
		t.Fatalf("exec idle: %v", err)
	}
	prog, err := k.RegisterProgram(func() {}, false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	pid, err := k.Exec(prog, Normal)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !k.Kill(pid) {
		t.Fatalf("expected Kill to succeed on a live process")
	}
	if k.ActiveCount() != 1 {
		t.Fatalf("expected only the idle process active after kill, got %d", k.ActiveCount())
	}
	if _, err := k.Exec(prog, Normal); err != nil {
		t.Fatalf("exec after kill should reuse the freed slot: %v", err)
	}
}

func TestTickDetectsStackOverflow(t *testing.T) {
	fatalCalled := false
	k := NewKernel(blockingIdle, func(format string, args ...interface{}) {
		fatalCalled = true
	})
	if err := k.Scribble(IdleProcess, 0, make([]byte, defaultStackSize+1)); err != nil {
		t.Fatalf("scribble: %v", err)
	}
	k.Tick()
	if !fatalCalled {
		t.Fatalf("expected fatal to be invoked on stack overflow")
	}
}

func TestTickDetectsStackCorruption(t *testing.T) {
	fatalCalled := false
	k := NewKernel(blockingIdle, func(format string, args ...interface{}) {
		fatalCalled = true
	})
	k.Tick() // establishes the first fingerprint for the idle process
	if err := k.Scribble(IdleProcess, 10, []byte{0xFF, 0xFF, 0xFF}); err != nil {
		t.Fatalf("scribble: %v", err)
	}
	k.Tick()
	if !fatalCalled {
		t.Fatalf("expected fatal to be invoked on stack corruption")
	}
}

func TestEnterLeaveBalancedDoesNotFault(t *testing.T) {
	k := newTestKernel(t)
	k.Enter()
	k.Enter()
	k.Leave()
	k.Leave()
}

func TestLeaveWithoutEnterIsFatal(t *testing.T) {
	fatalCalled := false
	k := NewKernel(blockingIdle, func(format string, args ...interface{}) {
		fatalCalled = true
	})
	k.Leave()
	if !fatalCalled {
		t.Fatalf("expected fatal on an unbalanced Leave")
	}
}

func TestYieldIsNoOpWhileCriticalSectionHeld(t *testing.T) {
	k := newTestKernel(t)
	prog, err := k.RegisterProgram(func() {}, false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := k.Exec(IdleProgram, Low); err != nil {
		t.Fatalf("exec idle: %v", err)
	}
	if _, err := k.Exec(prog, Normal); err != nil {
		t.Fatalf("exec prog: %v", err)
	}

	before := k.CurrentPID()
	k.Enter()
	k.Yield() // must return immediately without touching the scheduling decision
	if got := k.CurrentPID(); got != before {
		t.Fatalf("Yield must be a no-op while a critical section is held: current changed from %d to %d", before, got)
	}
	k.Leave()
}

func TestSetStrategyReportsBack(t *testing.T) {
	k := newTestKernel(t)
	if k.Strategy() != RoundRobin {
		t.Fatalf("expected default strategy RoundRobin, got %v", k.Strategy())
	}
	k.SetStrategy(PriorityRoundRobin)
	if k.Strategy() != PriorityRoundRobin {
		t.Fatalf("expected PriorityRoundRobin after SetStrategy, got %v", k.Strategy())
	}
}

func TestBootIsIdempotent(t *testing.T) {
	k := newTestKernel(t)
	if err := k.Boot(); err != nil {
		t.Fatalf("first boot: %v", err)
	}
	if err := k.Boot(); err != nil {
		t.Fatalf("second boot must be a no-op, got error: %v", err)
	}
	if k.ActiveCount() != 1 {
		t.Fatalf("expected only the idle process active after boot, got %d", k.ActiveCount())
	}
}

func TestBootStartsAutostartPrograms(t *testing.T) {
	k := newTestKernel(t)
	if _, err := k.RegisterProgram(func() {}, true); err != nil {
		t.Fatalf("register autostart program: %v", err)
	}
	if _, err := k.RegisterProgram(func() {}, false); err != nil {
		t.Fatalf("register non-autostart program: %v", err)
	}
	if err := k.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	if got := k.ActiveCount(); got != 2 {
		t.Fatalf("expected idle plus one autostart process, got %d", got)
	}
}

// TestSlotReuseHandsOffToTheNewOccupant runs a program to completion through
// a real Boot, then execs a second program into the slot it just freed, and
// checks that the new occupant actually gets scheduled. A self-killing
// process's goroutine parks forever on its slot's turn channel (see Kill);
// if Exec reused that channel instead of replacing it, the dead goroutine
// and the new dispatcher would both be waiting on the same channel and the
// next token sent to the slot could be delivered to the wrong one.
func TestSlotReuseHandsOffToTheNewOccupant(t *testing.T) {
	var k *Kernel
	fatalCalled := false
	k = NewKernel(func() {
		for {
			k.Yield()
		}
	}, func(format string, args ...interface{}) {
		fatalCalled = true
		t.Errorf("unexpected fatal: "+format, args...)
	})

	shortDone := make(chan struct{})
	short, err := k.RegisterProgram(func() {
		close(shortDone)
	}, false)
	if err != nil {
		t.Fatalf("register short: %v", err)
	}

	probeRan := make(chan struct{})
	probe, err := k.RegisterProgram(func() {
		close(probeRan)
		select {} // park like any other live process would
	}, false)
	if err != nil {
		t.Fatalf("register probe: %v", err)
	}

	if err := k.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}

	if _, err := k.Exec(short, Normal); err != nil {
		t.Fatalf("exec short: %v", err)
	}

	select {
	case <-shortDone:
	case <-time.After(time.Second):
		t.Fatalf("short program never ran")
	}

	// Give the self-killed process's goroutine a moment to reach its
	// terminal park inside handoff before the slot is reused.
	time.Sleep(20 * time.Millisecond)

	if _, err := k.Exec(probe, Normal); err != nil {
		t.Fatalf("exec probe: %v", err)
	}

	select {
	case <-probeRan:
	case <-time.After(time.Second):
		t.Fatalf("probe never ran after reusing the slot short vacated")
	}

	if fatalCalled {
		t.Fatalf("unexpected fatal during slot reuse")
	}
}
