package link

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kballard/go-shellquote"
)

// Command is a short UTF-8 text token exchanged between the station and the crawler.
type Command string

// inbound, sent by the crawler
const (
	CmdConnected    Command = "connected"
	CmdDisconnected Command = "disconnected"
)

// outbound, interpreted only by the crawler
const (
	CmdConnect           Command = "connect"
	CmdConnectNoSound    Command = "connect nosound"
	CmdDisconnect        Command = "disconnect"
	CmdDisconnectNoSound Command = "disconnect nosound"
	CmdStartCam          Command = "startcam"
	CmdStartCamNoSound   Command = "startcam nosound"
	CmdStopCam           Command = "stopcam"
	CmdQuit              Command = "quit"

	CmdMoveForward  Command = "move forward"
	CmdMoveBackward Command = "move backward"
	CmdMoveLeft     Command = "move left"
	CmdMoveRight    Command = "move right"
)

const (
	VerbConnect    = "connect"
	VerbDisconnect = "disconnect"
	VerbStartCam   = "startcam"
	VerbStopCam    = "stopcam"
	VerbSpeed      = "speed"
	VerbStep       = "step"

	argNoSound = "nosound"
)

// ParseCommand converts a control payload to a token.
// Invalid UTF-8 is replaced and trailing NUL/whitespace is trimmed.
func ParseCommand(b []byte) Command {
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return Command(strings.TrimRight(s, "\x00 \t\r\n"))
}

// Fields splits the command like a shell would. Unbalanced quotes fall back
// to plain whitespace splitting.
func (c Command) Fields() []string {
	fields, err := shellquote.Split(string(c))
	if err != nil {
		return strings.Fields(string(c))
	}
	return fields
}

func (c Command) Verb() string {
	if fields := c.Fields(); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func (c Command) Args() []string {
	if fields := c.Fields(); len(fields) > 1 {
		return fields[1:]
	}
	return nil
}

// NoSound reports whether the crawler was asked to stay quiet for this command.
func (c Command) NoSound() bool {
	args := c.Args()
	return len(args) > 0 && args[0] == argNoSound
}

func (c Command) Bytes() []byte {
	return []byte(c)
}

func (c Command) String() string {
	return string(c)
}

// Speed builds the crawler speed setting command, percent in 0..100.
func Speed(percent int) Command {
	return Command(VerbSpeed + " " + strconv.Itoa(percent))
}

// Step builds a raw leg position command: right front, left front,
// right back, left back, each as x y z.
func Step(positions [12]int) Command {
	args := make([]string, 0, len(positions)+1)
	args = append(args, VerbStep)
	for _, p := range positions {
		args = append(args, strconv.Itoa(p))
	}
	return Command(strings.Join(args, " "))
}
