package drive

import (
	"sync/atomic"

	"github.com/realitycrawler/crawlink/pkg/link"
	"github.com/rs/zerolog"
)

// Driver converts the polled input into move commands, one per tick.
type Driver struct {
	Deadzone float64
	// Gate, when set, must return true for a command to be sent
	Gate func() bool

	source Source
	sender link.Sender
	log    zerolog.Logger

	sent    atomic.Uint64
	skipped atomic.Uint64
}

func NewDriver(source Source, sender link.Sender, log zerolog.Logger) *Driver {
	return &Driver{
		Deadzone: DefaultDeadzone,
		source:   source,
		sender:   sender,
		log:      log,
	}
}

// Tick samples the source and sends at most one command. It is called from
// one goroutine only.
func (d *Driver) Tick() (link.Command, bool) {
	x, y := d.source.SampleDirection()

	cmd, ok := Direction(x, y, d.Deadzone)
	if !ok {
		return "", false
	}

	if d.Gate != nil && !d.Gate() {
		d.skipped.Add(1)
		d.log.Trace().Str("cmd", string(cmd)).Msg("[drive] skip")
		return cmd, false
	}

	if err := d.sender.Send(cmd); err != nil {
		return cmd, false
	}

	d.sent.Add(1)
	return cmd, true
}

func (d *Driver) Counters() (sent, skipped uint64) {
	return d.sent.Load(), d.skipped.Load()
}
