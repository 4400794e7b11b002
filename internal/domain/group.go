package domain

import "time"

// GroupActivityWindow is the trailing window a group's last post must fall in.
const GroupActivityWindow = 6 * 30 * 24 * time.Hour

// Group is a harvesting target.
type Group struct {
	ID           int64      `json:"id" db:"group_id"`
	ScreenName   string     `json:"screen_name"`
	Name         string     `json:"name"`
	MembersCount int        `json:"members_count"`
	Description  string     `json:"description,omitempty"`
	Closed       bool       `json:"is_closed"`
	LastPostAt   *time.Time `json:"last_post_at,omitempty"`
}

// IsActive reports whether the last post is newer than GroupActivityWindow.
// A group without posts is never active.
func (g *Group) IsActive(now time.Time) bool {
	if g.LastPostAt == nil || g.LastPostAt.IsZero() {
		return false
	}
	return g.LastPostAt.After(now.Add(-GroupActivityWindow))
}

// ParsedGroup is a ledger row: a group already harvested for a niche.
type ParsedGroup struct {
	ID       int64     `json:"id" db:"id"`
	GroupID  int64     `json:"group_id" db:"group_id"`
	Niche    string    `json:"niche" db:"niche"`
	ParsedAt time.Time `json:"parsed_at" db:"parsed_at"`
}
