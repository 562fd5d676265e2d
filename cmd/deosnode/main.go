// Command deosnode boots the scheduler core, attaches it to a radio link
// over a serial port, and runs a small set of demonstration programs that
// exercise the kernel and the framing core together: one that blinks an
// LED by sending SET_LED frames, one that polls the receive worker, and
// the idle program required by every kernel instance.
package main

import (
	"flag"
	"log"
	"time"

	serial "github.com/fh-aachen/deos"
	"github.com/fh-aachen/deos/framing"
	"github.com/fh-aachen/deos/kernel"
	"github.com/fh-aachen/deos/transport"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "radio link serial device")
	team       = flag.Uint("team", 1, "this node's team address (0-31)")
	sub        = flag.Uint("sub", 0, "this node's sub address within the team (0-7)")
	destTeam   = flag.Uint("dest-team", 1, "destination team address for the demo LED blinker")
	destSub    = flag.Uint("dest-sub", 1, "destination sub address for the demo LED blinker")
	strategy   = flag.String("strategy", "priority", "scheduling policy: flat or priority")
	blinkEvery = flag.Duration("blink-every", 500*time.Millisecond, "interval between demo SET_LED toggles")
)

type wallClock struct{}

func (wallClock) NowMs() uint32 {
	return uint32(time.Now().UnixMilli())
}

func fatalf(format string, args ...interface{}) {
	log.Fatalf("kernel fatal: "+format, args...)
}

func main() {
	flag.Parse()

	self := framing.NewAddress(uint8(*team), uint8(*sub))
	dest := framing.NewAddress(uint8(*destTeam), uint8(*destSub))

	port, err := serial.RadioLink(*device, 500*time.Millisecond)
	if err != nil {
		log.Fatalf("open radio link %s: %v", *device, err)
	}
	link := transport.NewSerialTransport(port)
	if err := link.Init(); err != nil {
		log.Fatalf("init radio link: %v", err)
	}
	defer link.Close()

	sender := &framing.Sender{Transport: link, Self: self}

	var ledState bool
	receiver := &framing.Receiver{
		Transport: link,
		Clock:     wallClock{},
		Self:      self,
		Handlers: framing.Handlers{
			SetLed: func(enable bool) {
				ledState = enable
				log.Printf("led -> %v", ledState)
			},
			LcdPrint: func(text []byte) {
				log.Printf("lcd print %q", text)
			},
			SensorData: func(kind, paramKind uint8, scalar uint32) {
				log.Printf("sensor kind=%d param=%d value=%d", kind, paramKind, scalar)
			},
		},
	}

	var k *kernel.Kernel
	k = kernel.NewKernel(func() {
		for {
			// idle never returns; yielding here is the hosted analogue of
			// the source platform's idle-loop nop, giving every other
			// Ready process a chance to be picked.
			k.Yield()
		}
	}, fatalf)

	switch *strategy {
	case "flat":
		k.SetStrategy(kernel.RoundRobin)
	case "priority":
		k.SetStrategy(kernel.PriorityRoundRobin)
	default:
		log.Fatalf("unknown strategy %q", *strategy)
	}

	receiveProgram := func() {
		for {
			receiver.Worker()
			k.Yield()
		}
	}
	if _, err := k.RegisterProgram(receiveProgram, true); err != nil {
		log.Fatalf("register receive program: %v", err)
	}

	blinkProgram := func() {
		for {
			ledState = !ledState
			if err := sender.SendSetLed(dest, ledState); err != nil {
				log.Printf("send led: %v", err)
			}
			time.Sleep(*blinkEvery)
			k.Yield()
		}
	}
	if _, err := k.RegisterProgram(blinkProgram, true); err != nil {
		log.Fatalf("register blink program: %v", err)
	}

	log.Printf("deosnode starting: self=%d dest=%d device=%s strategy=%s", self, dest, *device, *strategy)
	if err := k.Boot(); err != nil {
		log.Fatalf("boot kernel: %v", err)
	}

	// Boot only hands the idle process its first turn and returns; every
	// process runs on its own goroutine from here on. Block forever so the
	// scheduler keeps running instead of the binary exiting immediately,
	// the hosted analogue of os_startScheduler never returning.
	select {}
}
