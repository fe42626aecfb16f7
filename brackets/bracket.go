package brackets

import (
	"fmt"
	"maps"
	"slices"
)

type EventType string

const (
	EvtGroupReordered       EventType = "GroupReordered"
	EvtThirdPlaceSelected   EventType = "ThirdPlaceSelected"
	EvtThirdPlaceDeselected EventType = "ThirdPlaceDeselected"
	EvtThirdPlaceEvicted    EventType = "ThirdPlaceEvicted"
	EvtPickRecorded         EventType = "PickRecorded"
	EvtPickCleared          EventType = "PickCleared"
	EvtPickInvalidated      EventType = "PickInvalidated"
	EvtBracketFrozen        EventType = "BracketFrozen"
)

// Event describes one state change produced by a Bracket operation. A single
// operation can emit several events, e.g. a reorder followed by the picks it
// invalidated.
type Event struct {
	Type  EventType `json:"type"`
	Group GroupID   `json:"group,omitempty"`
	Team  TeamID    `json:"team,omitempty"`
	Match MatchID   `json:"match,omitempty"`
}

// Participants are the resolved sides of a match. An empty TeamID means that
// side is not determined yet.
type Participants struct {
	Home TeamID `json:"home,omitempty"`
	Away TeamID `json:"away,omitempty"`
}

func (p Participants) Resolved() bool {
	return p.Home != "" && p.Away != ""
}

func (p Participants) Contains(t TeamID) bool {
	return t != "" && (p.Home == t || p.Away == t)
}

// Other returns the opponent of t, or "" if t is not a participant.
func (p Participants) Other(t TeamID) TeamID {
	switch {
	case !p.Resolved():
		return ""
	case p.Home == t:
		return p.Away
	case p.Away == t:
		return p.Home
	default:
		return ""
	}
}

// Bracket is one user's prediction: group standings, third-place qualifiers
// and knockout picks. It is not safe for concurrent use; callers serialise
// access per session.
//
// Every mutating method is all-or-nothing. It works on a copy, clears picks
// invalidated by the change and only then replaces the receiver's state, so a
// pick that does not match its match's current participants is never
// observable.
type Bracket struct {
	reg        *Registry
	standings  map[GroupID][]TeamID
	thirdPlace map[TeamID]bool
	picks      map[MatchID]TeamID
	locked     bool
}

// NewBracket returns a bracket with registry group order, no third-place
// qualifiers and no picks.
func NewBracket(reg *Registry) *Bracket {
	b := &Bracket{
		reg:        reg,
		standings:  make(map[GroupID][]TeamID, len(reg.groupOrder)),
		thirdPlace: make(map[TeamID]bool, ThirdPlaceSlots),
		picks:      make(map[MatchID]TeamID),
	}
	for _, gid := range reg.groupOrder {
		b.standings[gid] = slices.Clone(reg.groups[gid].Teams)
	}
	return b
}

func (b *Bracket) Registry() *Registry { return b.reg }

func (b *Bracket) Locked() bool { return b.locked }

func (b *Bracket) clone() *Bracket {
	c := &Bracket{
		reg:        b.reg,
		standings:  make(map[GroupID][]TeamID, len(b.standings)),
		thirdPlace: maps.Clone(b.thirdPlace),
		picks:      maps.Clone(b.picks),
		locked:     b.locked,
	}
	for g, order := range b.standings {
		c.standings[g] = slices.Clone(order)
	}
	return c
}

func (b *Bracket) replace(with *Bracket) {
	b.standings = with.standings
	b.thirdPlace = with.thirdPlace
	b.picks = with.picks
	b.locked = with.locked
}

// Standing returns the predicted order of group g (rank 1 first).
func (b *Bracket) Standing(g GroupID) ([]TeamID, bool) {
	order, ok := b.standings[g]
	return slices.Clone(order), ok
}

func (b *Bracket) Standings() map[GroupID][]TeamID {
	out := make(map[GroupID][]TeamID, len(b.standings))
	for g, order := range b.standings {
		out[g] = slices.Clone(order)
	}
	return out
}

// ThirdPlaceSelection returns the selected qualifiers ordered by group.
func (b *Bracket) ThirdPlaceSelection() []TeamID {
	out := make([]TeamID, 0, len(b.thirdPlace))
	for _, gid := range b.reg.groupOrder {
		t := b.standings[gid][thirdPlaceQualifier-1]
		if b.thirdPlace[t] {
			out = append(out, t)
		}
	}
	return out
}

func (b *Bracket) IsThirdPlaceSelected(t TeamID) bool {
	return b.thirdPlace[t]
}

func (b *Bracket) Pick(m MatchID) (TeamID, bool) {
	t, ok := b.picks[m]
	return t, ok
}

func (b *Bracket) Picks() map[MatchID]TeamID {
	return maps.Clone(b.picks)
}

// rankOf returns the 1-based predicted rank of t in its group.
func (b *Bracket) rankOf(t TeamID) (GroupID, int, bool) {
	team, ok := b.reg.teams[t]
	if !ok {
		return "", 0, false
	}
	idx := slices.Index(b.standings[team.Group], t)
	if idx < 0 {
		return "", 0, false
	}
	return team.Group, idx + 1, true
}

// SetGroupOrder replaces the predicted order of group g.
func (b *Bracket) SetGroupOrder(g GroupID, order []TeamID) ([]Event, error) {
	if b.locked {
		return nil, ErrSubmissionLocked
	}
	if err := b.reg.ValidatePermutation(g, order); err != nil {
		return nil, err
	}
	if slices.Equal(b.standings[g], order) {
		return nil, nil
	}

	before := b.resolveAll()
	work := b.clone()
	work.standings[g] = slices.Clone(order)

	events := []Event{{Type: EvtGroupReordered, Group: g}}

	prevThird := b.standings[g][thirdPlaceQualifier-1]
	if order[thirdPlaceQualifier-1] != prevThird && work.thirdPlace[prevThird] {
		delete(work.thirdPlace, prevThird)
		events = append(events, Event{Type: EvtThirdPlaceEvicted, Group: g, Team: prevThird})
	}

	events = append(events, work.invalidate(before)...)
	b.replace(work)
	return events, nil
}

// ToggleThirdPlace selects or deselects a third-placed team as a qualifier.
func (b *Bracket) ToggleThirdPlace(t TeamID) ([]Event, error) {
	if b.locked {
		return nil, ErrSubmissionLocked
	}
	g, rank, ok := b.rankOf(t)
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidPick, ErrUnknownTeam, t)
	}
	if rank != thirdPlaceQualifier {
		return nil, fmt.Errorf("%w: %s is ranked %d in group %s", ErrInvalidPick, t, rank, g)
	}

	before := b.resolveAll()
	work := b.clone()

	var events []Event
	if work.thirdPlace[t] {
		delete(work.thirdPlace, t)
		events = append(events, Event{Type: EvtThirdPlaceDeselected, Group: g, Team: t})
	} else {
		if len(work.thirdPlace) >= ThirdPlaceSlots {
			return nil, ErrSelectionFull
		}
		work.thirdPlace[t] = true
		events = append(events, Event{Type: EvtThirdPlaceSelected, Group: g, Team: t})
	}

	events = append(events, work.invalidate(before)...)
	b.replace(work)
	return events, nil
}

// ResolveParticipants returns the teams currently feeding match m.
func (b *Bracket) ResolveParticipants(m MatchID) (Participants, error) {
	if _, ok := b.reg.matches[m]; !ok {
		return Participants{}, fmt.Errorf("%w: %d", ErrUnknownMatch, m)
	}
	return b.resolveAll()[m], nil
}

// PickWinner records t as the predicted winner of m.
func (b *Bracket) PickWinner(m MatchID, t TeamID) ([]Event, error) {
	if b.locked {
		return nil, ErrSubmissionLocked
	}
	if _, ok := b.reg.matches[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMatch, m)
	}

	before := b.resolveAll()
	p := before[m]
	if !p.Resolved() {
		return nil, fmt.Errorf("%w: match %d", ErrNotYetResolvable, m)
	}
	if !p.Contains(t) {
		return nil, fmt.Errorf("%w: %q does not play in match %d (%s v %s)", ErrInvalidPick, t, m, p.Home, p.Away)
	}
	if b.picks[m] == t {
		return nil, nil
	}

	work := b.clone()
	work.picks[m] = t
	events := []Event{{Type: EvtPickRecorded, Match: m, Team: t}}
	events = append(events, work.invalidate(before)...)
	b.replace(work)
	return events, nil
}

// ClearPick removes the pick for m and every pick that depended on it.
func (b *Bracket) ClearPick(m MatchID) ([]Event, error) {
	if b.locked {
		return nil, ErrSubmissionLocked
	}
	if _, ok := b.reg.matches[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMatch, m)
	}
	prev, ok := b.picks[m]
	if !ok {
		return nil, nil
	}

	before := b.resolveAll()
	work := b.clone()
	delete(work.picks, m)
	events := []Event{{Type: EvtPickCleared, Match: m, Team: prev}}
	events = append(events, work.invalidate(before)...)
	b.replace(work)
	return events, nil
}

// seedTeams maps each third-place seed (index 0 is seed 1) to a team, or
// returns nil while fewer than 8 qualifiers are selected.
func (b *Bracket) seedTeams() []TeamID {
	if len(b.thirdPlace) != ThirdPlaceSlots {
		return nil
	}
	groups := make([]GroupID, 0, ThirdPlaceSlots)
	for t := range b.thirdPlace {
		groups = append(groups, b.reg.teams[t].Group)
	}
	assignment, ok := b.reg.SeedAssignment(groups)
	if !ok {
		return nil
	}
	teams := make([]TeamID, len(assignment))
	for i, g := range assignment {
		teams[i] = b.standings[g][thirdPlaceQualifier-1]
	}
	return teams
}

// resolveAll resolves every match in topological order.
func (b *Bracket) resolveAll() map[MatchID]Participants {
	seeds := b.seedTeams()
	out := make(map[MatchID]Participants, len(b.reg.matchOrder))
	for _, id := range b.reg.matchOrder {
		m := b.reg.matches[id]
		out[id] = Participants{
			Home: b.resolveSource(m.Home, seeds, out),
			Away: b.resolveSource(m.Away, seeds, out),
		}
	}
	return out
}

func (b *Bracket) resolveSource(src ParticipantSource, seeds []TeamID, resolved map[MatchID]Participants) TeamID {
	switch s := src.(type) {
	case GroupRank:
		order := b.standings[s.Group]
		if s.Rank < 1 || s.Rank > len(order) {
			return ""
		}
		return order[s.Rank-1]
	case ThirdPlaceSeed:
		if seeds == nil || s.Seed < 1 || s.Seed > len(seeds) {
			return ""
		}
		return seeds[s.Seed-1]
	case WinnerOf:
		return b.picks[s.Match]
	case LoserOf:
		winner, ok := b.picks[s.Match]
		if !ok {
			return ""
		}
		return resolved[s.Match].Other(winner)
	default:
		return ""
	}
}

// invalidate clears every pick whose match's participants differ from
// before, together with all picks downstream of it. It runs on the working
// copy, walking matches in topological order so cleared picks propagate.
func (b *Bracket) invalidate(before map[MatchID]Participants) []Event {
	var events []Event
	seeds := b.seedTeams()
	current := make(map[MatchID]Participants, len(b.reg.matchOrder))

	drop := func(id MatchID) {
		if t, ok := b.picks[id]; ok {
			delete(b.picks, id)
			events = append(events, Event{Type: EvtPickInvalidated, Match: id, Team: t})
		}
	}

	for _, id := range b.reg.matchOrder {
		m := b.reg.matches[id]
		p := Participants{
			Home: b.resolveSource(m.Home, seeds, current),
			Away: b.resolveSource(m.Away, seeds, current),
		}
		current[id] = p

		if p != before[id] {
			drop(id)
			for _, down := range b.reg.Downstream(id) {
				drop(down)
			}
			continue
		}
		if t, ok := b.picks[id]; ok && !p.Contains(t) {
			drop(id)
			for _, down := range b.reg.Downstream(id) {
				drop(down)
			}
		}
	}
	return events
}
