package vk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ignite/leadharvest/internal/domain"
)

// MembersPage is one page of groups.getMembers.
type MembersPage struct {
	Total int
	Items []domain.Candidate
}

// GroupMembers lists one page of a group's members with MemberFields.
func (c *Client) GroupMembers(ctx context.Context, groupRef string, offset, count int) (*MembersPage, error) {
	if count > MaxMembersPage {
		count = MaxMembersPage
	}
	params := url.Values{}
	params.Set("group_id", groupRef)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("count", strconv.Itoa(count))
	params.Set("fields", MemberFields)

	var page itemsPage[rawUser]
	if err := c.call(ctx, "groups.getMembers", params, &page); err != nil {
		return nil, err
	}

	out := &MembersPage{Total: page.Count, Items: make([]domain.Candidate, 0, len(page.Items))}
	for _, u := range page.Items {
		out.Items = append(out.Items, u.candidate())
	}
	return out, nil
}

// Group returns a group's public info.
func (c *Client) Group(ctx context.Context, groupRef string) (*domain.Group, error) {
	params := url.Values{}
	params.Set("group_id", groupRef)
	params.Set("fields", "members_count,description")

	var raw json.RawMessage
	if err := c.call(ctx, "groups.getById", params, &raw); err != nil {
		return nil, err
	}

	// Newer API versions wrap the list in {"groups": [...]}.
	var groups []rawGroup
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		if err := json.Unmarshal(raw, &groups); err != nil {
			return nil, fmt.Errorf("decode groups.getById: %w", err)
		}
	} else {
		var wrapped struct {
			Groups []rawGroup `json:"groups"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("decode groups.getById: %w", err)
		}
		groups = wrapped.Groups
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("group %s not found", groupRef)
	}
	g := groups[0].group()
	return &g, nil
}

// SearchGroups runs groups.search restricted to regular groups.
func (c *Client) SearchGroups(ctx context.Context, query string, count int) ([]domain.Group, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "group")
	params.Set("count", strconv.Itoa(count))

	var page itemsPage[rawGroup]
	if err := c.call(ctx, "groups.search", params, &page); err != nil {
		return nil, err
	}
	out := make([]domain.Group, 0, len(page.Items))
	for _, g := range page.Items {
		out = append(out, g.group())
	}
	return out, nil
}
