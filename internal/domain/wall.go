package domain

import "time"

// Post is a wall post in a group.
type Post struct {
	ID      int64     `json:"id"`
	OwnerID int64     `json:"owner_id"`
	Date    time.Time `json:"date"`
	Text    string    `json:"text"`
}

// Comment is a comment under a wall post.
type Comment struct {
	ID      int64     `json:"id"`
	PostID  int64     `json:"post_id"`
	OwnerID int64     `json:"owner_id"`
	FromID  int64     `json:"from_id"`
	Date    time.Time `json:"date"`
	Text    string    `json:"text"`
}
