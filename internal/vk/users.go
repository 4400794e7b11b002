package vk

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ignite/leadharvest/internal/domain"
)

// CurrentUser returns the owner of the access token. It doubles as the
// token validity check.
func (c *Client) CurrentUser(ctx context.Context) (*domain.Candidate, error) {
	var users []rawUser
	if err := c.call(ctx, "users.get", nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("users.get: empty response")
	}
	u := users[0].candidate()
	return &u, nil
}

// MessageAvailability returns can_write_private_message for up to 100 ids.
func (c *Client) MessageAvailability(ctx context.Context, ids []int64) (map[int64]bool, error) {
	params := url.Values{}
	params.Set("user_ids", joinIDs(ids))
	params.Set("fields", "can_write_private_message")

	var users []rawUser
	if err := c.call(ctx, "users.get", params, &users); err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(users))
	for _, u := range users {
		out[u.ID] = bool(u.CanWrite)
	}
	return out, nil
}
