package domain

import (
	"strconv"
	"strings"
	"time"
)

// Sex mirrors the platform's numeric sex field.
type Sex int

const (
	SexUnspecified Sex = 0
	SexFemale      Sex = 1
	SexMale        Sex = 2
)

func (s Sex) String() string {
	switch s {
	case SexFemale:
		return "female"
	case SexMale:
		return "male"
	default:
		return "unspecified"
	}
}

// ProfileURLPrefix is prepended to a user id to build a profile link.
const ProfileURLPrefix = "https://vk.com/id"

// ActivityWindow is how recently a member must have been seen to count as active.
const ActivityWindow = 30 * 24 * time.Hour

// Candidate is a prospective message recipient harvested from a group.
type Candidate struct {
	ID          int64      `json:"id" db:"id"`
	FirstName   string     `json:"first_name" db:"first_name"`
	LastName    string     `json:"last_name" db:"last_name"`
	ProfileURL  string     `json:"url" db:"url"`
	Sex         Sex        `json:"sex"`
	BirthDate   string     `json:"bdate,omitempty"`
	CityID      int64      `json:"city_id,omitempty"`
	CityTitle   string     `json:"city,omitempty"`
	CanMessage  bool       `json:"can_write_private_message"`
	Online      bool       `json:"online"`
	LastSeenAt  *time.Time `json:"last_seen,omitempty"`
	HasMobile   bool       `json:"has_mobile"`
	Deactivated string     `json:"deactivated,omitempty"`

	// Store-owned fields.
	Contacted    bool       `json:"sent" db:"sent"`
	ContactedAt  *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	ReminderSent bool       `json:"reminder_sent" db:"reminder_sent"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// ProfileURL returns the public profile link for a user id.
func ProfileURL(id int64) string {
	return ProfileURLPrefix + strconv.FormatInt(id, 10)
}

// FullName joins first and last name, dropping empty parts.
func (c *Candidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// IsDeactivated reports whether the platform marked the account deleted or banned.
func (c *Candidate) IsDeactivated() bool {
	return c.Deactivated != ""
}

// IsActive reports whether the member is online or was seen within ActivityWindow.
func (c *Candidate) IsActive(now time.Time) bool {
	if c.Online {
		return true
	}
	if c.LastSeenAt == nil {
		return false
	}
	return now.Sub(*c.LastSeenAt) <= ActivityWindow
}

// Age returns the calendar-year age derived from a DD.MM.YYYY birth date.
// The second value is false when the age is unknown: no date, a date without
// a year, or a year that does not produce a positive age.
func (c *Candidate) Age(now time.Time) (int, bool) {
	if c.BirthDate == "" {
		return 0, false
	}
	parts := strings.Split(c.BirthDate, ".")
	if len(parts) != 3 {
		return 0, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || year < 1900 {
		return 0, false
	}
	age := now.Year() - year
	if age <= 0 {
		return 0, false
	}
	return age, true
}
