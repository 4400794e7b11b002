package vk

import (
	"bytes"
	"strings"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
)

// MemberFields are the profile fields requested for every harvested member.
const MemberFields = "sex,bdate,city,can_write_private_message,last_seen,online,has_mobile"

// flag decodes the API's 0/1 integers (and the occasional JSON bool).
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	*f = flag(s == "1" || s == "true")
	return nil
}

type rawCity struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type rawLastSeen struct {
	Time     int64 `json:"time"`
	Platform int   `json:"platform"`
}

type rawUser struct {
	ID          int64        `json:"id"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	Deactivated string       `json:"deactivated"`
	Sex         int          `json:"sex"`
	BDate       string       `json:"bdate"`
	City        *rawCity     `json:"city"`
	CanWrite    flag         `json:"can_write_private_message"`
	Online      flag         `json:"online"`
	LastSeen    *rawLastSeen `json:"last_seen"`
	HasMobile   flag         `json:"has_mobile"`
}

func (u rawUser) candidate() domain.Candidate {
	c := domain.Candidate{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		ProfileURL:  domain.ProfileURL(u.ID),
		Sex:         domain.Sex(u.Sex),
		BirthDate:   u.BDate,
		CanMessage:  bool(u.CanWrite),
		Online:      bool(u.Online),
		HasMobile:   bool(u.HasMobile),
		Deactivated: u.Deactivated,
	}
	if c.Sex != domain.SexFemale && c.Sex != domain.SexMale {
		c.Sex = domain.SexUnspecified
	}
	if u.City != nil {
		c.CityID = u.City.ID
		c.CityTitle = u.City.Title
	}
	if u.LastSeen != nil && u.LastSeen.Time > 0 {
		seen := time.Unix(u.LastSeen.Time, 0).UTC()
		c.LastSeenAt = &seen
	}
	return c
}

type rawGroup struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ScreenName   string `json:"screen_name"`
	IsClosed     int    `json:"is_closed"`
	MembersCount int    `json:"members_count"`
	Description  string `json:"description"`
}

func (g rawGroup) group() domain.Group {
	return domain.Group{
		ID:           g.ID,
		Name:         g.Name,
		ScreenName:   g.ScreenName,
		MembersCount: g.MembersCount,
		Description:  g.Description,
		Closed:       g.IsClosed != 0,
	}
}

type rawPost struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Date    int64  `json:"date"`
	Text    string `json:"text"`
}

func (p rawPost) post() domain.Post {
	post := domain.Post{ID: p.ID, OwnerID: p.OwnerID, Text: p.Text}
	if p.Date > 0 {
		post.Date = time.Unix(p.Date, 0).UTC()
	}
	return post
}

type rawComment struct {
	ID      int64  `json:"id"`
	PostID  int64  `json:"post_id"`
	OwnerID int64  `json:"owner_id"`
	FromID  int64  `json:"from_id"`
	Date    int64  `json:"date"`
	Text    string `json:"text"`
}

func (c rawComment) comment() domain.Comment {
	out := domain.Comment{
		ID:      c.ID,
		PostID:  c.PostID,
		OwnerID: c.OwnerID,
		FromID:  c.FromID,
		Text:    strings.TrimSpace(c.Text),
	}
	if c.Date > 0 {
		out.Date = time.Unix(c.Date, 0).UTC()
	}
	return out
}

type itemsPage[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}
