package orchestrator

import "strings"

// Kind is a recognised trigger command.
type Kind string

const (
	UpdateSchedule   Kind = "update schedule"
	UpdateXRanking   Kind = "update x-ranking"
	ArchiveXRanking  Kind = "archive x-ranking"
	UpdateSeasonInfo Kind = "update season-info"
)

// Command is a parsed trigger message.
type Command struct {
	Kind Kind
	Date string // archive only, DD-Mon-YYYY; empty means today
}

// ParseCommand reads a plaintext trigger. Words are matched case-sensitively
// after collapsing surrounding and repeated whitespace.
func ParseCommand(message string) (Command, bool) {
	fields := strings.Fields(message)
	if len(fields) < 2 {
		return Command{}, false
	}
	kind := Kind(fields[0] + " " + fields[1])
	rest := fields[2:]

	switch kind {
	case UpdateSchedule, UpdateXRanking, UpdateSeasonInfo:
		if len(rest) != 0 {
			return Command{}, false
		}
		return Command{Kind: kind}, true
	case ArchiveXRanking:
		switch len(rest) {
		case 0:
			return Command{Kind: kind}, true
		case 1:
			return Command{Kind: kind, Date: rest[0]}, true
		}
	}
	return Command{}, false
}

func (c Command) String() string {
	if c.Date == "" {
		return string(c.Kind)
	}
	return string(c.Kind) + " " + c.Date
}
