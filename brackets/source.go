package brackets

import (
	"fmt"
	"strconv"
)

// ParticipantSource describes where one side of a knockout match comes from.
// The concrete variants are GroupRank, ThirdPlaceSeed, WinnerOf and LoserOf.
type ParticipantSource interface {
	isSource()
	String() string
}

// GroupRank is the team a group standing places at Rank (1 or 2).
type GroupRank struct {
	Group GroupID
	Rank  int
}

// ThirdPlaceSeed is the selected third-placed team the seeding table assigns
// to Seed (1-based).
type ThirdPlaceSeed struct {
	Seed int
}

// WinnerOf is the picked winner of an earlier match.
type WinnerOf struct {
	Match MatchID
}

// LoserOf is the participant of an earlier match that was not picked.
type LoserOf struct {
	Match MatchID
}

func (GroupRank) isSource()      {}
func (ThirdPlaceSeed) isSource() {}
func (WinnerOf) isSource()       {}
func (LoserOf) isSource()        {}

func (s GroupRank) String() string      { return strconv.Itoa(s.Rank) + string(s.Group) }
func (s ThirdPlaceSeed) String() string { return "T" + strconv.Itoa(s.Seed) }
func (s WinnerOf) String() string       { return "W" + strconv.Itoa(int(s.Match)) }
func (s LoserOf) String() string        { return "L" + strconv.Itoa(int(s.Match)) }

// ParseSource parses the compact notation used in the fixture data:
// "1A"/"2B" for group ranks, "T3" for third-place seeds, "W74" and "L101" for
// match outcomes.
func ParseSource(raw string) (ParticipantSource, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("invalid participant source %q", raw)
	}

	switch raw[0] {
	case '1', '2':
		if len(raw) != 2 || raw[1] < 'A' || raw[1] > 'Z' {
			return nil, fmt.Errorf("invalid group rank source %q", raw)
		}
		return GroupRank{Group: GroupID(raw[1:]), Rank: int(raw[0] - '0')}, nil
	case 'T':
		seed, err := strconv.Atoi(raw[1:])
		if err != nil || seed <= 0 {
			return nil, fmt.Errorf("invalid third-place seed source %q", raw)
		}
		return ThirdPlaceSeed{Seed: seed}, nil
	case 'W', 'L':
		id, err := strconv.Atoi(raw[1:])
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid match source %q", raw)
		}
		if raw[0] == 'W' {
			return WinnerOf{Match: MatchID(id)}, nil
		}
		return LoserOf{Match: MatchID(id)}, nil
	default:
		return nil, fmt.Errorf("unknown participant source %q", raw)
	}
}

// upstreamMatch returns the match a source depends on, if any.
func upstreamMatch(src ParticipantSource) (MatchID, bool) {
	switch s := src.(type) {
	case WinnerOf:
		return s.Match, true
	case LoserOf:
		return s.Match, true
	default:
		return 0, false
	}
}
