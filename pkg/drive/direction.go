package drive

import (
	"math"

	"github.com/realitycrawler/crawlink/pkg/link"
)

const DefaultDeadzone = 0.5

// Direction maps a stick position to a move command. The dominant axis wins,
// positive y is forward and positive x is right. Nothing is sent while both
// axes are inside the deadzone.
func Direction(x, y, deadzone float64) (link.Command, bool) {
	ax, ay := math.Abs(x), math.Abs(y)

	if ax <= deadzone && ay <= deadzone {
		return "", false
	}

	if ay >= ax {
		if y > 0 {
			return link.CmdMoveForward, true
		}
		return link.CmdMoveBackward, true
	}

	if x > 0 {
		return link.CmdMoveRight, true
	}
	return link.CmdMoveLeft, true
}
