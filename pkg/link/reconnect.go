package link

import (
	"time"
)

// ReconnectSequence asks the crawler to drop the stale session, bind again
// and restart the camera.
var ReconnectSequence = []Command{CmdDisconnectNoSound, CmdConnectNoSound, CmdStartCamNoSound}

// ReconnectPolicy restarts a session that went quiet. A zero Timeout
// disables it.
type ReconnectPolicy struct {
	Timeout  time.Duration
	Sequence []Command
}

func (p *ReconnectPolicy) Enabled() bool {
	return p != nil && p.Timeout > 0
}

// Check fires the reconnect sequence when the session has been connected
// without activity for longer than Timeout.
func (p *ReconnectPolicy) Check(session *Session, sender Sender) bool {
	if !p.Enabled() || session.Idle() <= p.Timeout {
		return false
	}

	seq := p.Sequence
	if seq == nil {
		seq = ReconnectSequence
	}
	for _, cmd := range seq {
		_ = sender.Send(cmd)
	}
	return true
}
