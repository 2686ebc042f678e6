package dispatch

// State is where a dispatch ended.
type State int

const (
	Received State = iota
	Resolved
	Authorized
	Invoked
	Replied
	Suppressed
	Rejected
)

func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case Resolved:
		return "resolved"
	case Authorized:
		return "authorized"
	case Invoked:
		return "invoked"
	case Replied:
		return "replied"
	case Suppressed:
		return "suppressed"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Reason explains a rejection.
type Reason int

const (
	NoReason Reason = iota
	NotACommand
	UnknownCommand
	OriginIsBot
	SurfaceMismatch
	NotInGuild
	NotATestServer
	NotABotOwner
	ArgumentCount
)

func (r Reason) String() string {
	switch r {
	case NotACommand:
		return "not a command"
	case UnknownCommand:
		return "unknown command"
	case OriginIsBot:
		return "origin is a bot"
	case SurfaceMismatch:
		return "surface mismatch"
	case NotInGuild:
		return "not in a guild"
	case NotATestServer:
		return "not a test server"
	case NotABotOwner:
		return "not a bot owner"
	case ArgumentCount:
		return "wrong argument count"
	}
	return ""
}

// Outcome is the terminal state of one dispatch.
type Outcome struct {
	State   State
	Reason  Reason
	Command string // canonical name, empty when unresolved
	Alias   string
	Err     error // callback failure, already routed to the error handler
}
