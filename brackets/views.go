package brackets

type MatchStatus string

const (
	MatchUnresolved MatchStatus = "unresolved"
	MatchResolved   MatchStatus = "resolved"
	MatchPicked     MatchStatus = "picked"
)

// MatchView is a knockout match as the client renders it.
type MatchView struct {
	ID         MatchID     `json:"id"`
	Round      Round       `json:"round"`
	HomeSource string      `json:"home_source"`
	AwaySource string      `json:"away_source"`
	Home       TeamID      `json:"home,omitempty"`
	Away       TeamID      `json:"away,omitempty"`
	Pick       TeamID      `json:"pick,omitempty"`
	Status     MatchStatus `json:"status"`
	Venue      string      `json:"venue,omitempty"`
	Date       string      `json:"date,omitempty"`
}

// MatchViews returns every knockout match in topological order.
func (b *Bracket) MatchViews() []MatchView {
	resolved := b.resolveAll()
	views := make([]MatchView, 0, len(b.reg.matchOrder))
	for _, id := range b.reg.matchOrder {
		m := b.reg.matches[id]
		p := resolved[id]
		v := MatchView{
			ID:         id,
			Round:      m.Round,
			HomeSource: m.Home.String(),
			AwaySource: m.Away.String(),
			Home:       p.Home,
			Away:       p.Away,
			Status:     MatchUnresolved,
			Venue:      m.Venue,
			Date:       m.Date,
		}
		if p.Resolved() {
			v.Status = MatchResolved
		}
		if t, ok := b.picks[id]; ok {
			v.Pick = t
			v.Status = MatchPicked
		}
		views = append(views, v)
	}
	return views
}

type ThirdPlaceCandidate struct {
	Group    GroupID `json:"group"`
	Team     TeamID  `json:"team"`
	Selected bool    `json:"selected"`
}

// ThirdPlaceCandidates lists the current rank-3 team of every group.
func (b *Bracket) ThirdPlaceCandidates() []ThirdPlaceCandidate {
	out := make([]ThirdPlaceCandidate, 0, len(b.reg.groupOrder))
	for _, gid := range b.reg.groupOrder {
		t := b.standings[gid][thirdPlaceQualifier-1]
		out = append(out, ThirdPlaceCandidate{Group: gid, Team: t, Selected: b.thirdPlace[t]})
	}
	return out
}

// RoundOf32Entrants returns the teams currently predicted to reach the
// knockout stage: 24 group qualifiers plus the selected third-placed teams.
func (b *Bracket) RoundOf32Entrants() []TeamID {
	out := make([]TeamID, 0, 32)
	for _, gid := range b.reg.groupOrder {
		out = append(out, b.standings[gid][:2]...)
	}
	return append(out, b.ThirdPlaceSelection()...)
}
