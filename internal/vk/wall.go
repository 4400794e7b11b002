package vk

import (
	"context"
	"net/url"
	"strconv"

	"github.com/ignite/leadharvest/internal/domain"
)

// WallPosts returns count posts from a group wall starting at offset.
func (c *Client) WallPosts(ctx context.Context, groupRef string, offset, count int) ([]domain.Post, error) {
	params := ownerParams(groupRef)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("count", strconv.Itoa(count))

	var page itemsPage[rawPost]
	if err := c.call(ctx, "wall.get", params, &page); err != nil {
		return nil, err
	}
	out := make([]domain.Post, 0, len(page.Items))
	for _, p := range page.Items {
		out = append(out, p.post())
	}
	return out, nil
}

// PostComments returns up to count comments under a post, oldest first.
func (c *Client) PostComments(ctx context.Context, ownerID, postID int64, count int) ([]domain.Comment, error) {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("post_id", strconv.FormatInt(postID, 10))
	params.Set("count", strconv.Itoa(count))
	params.Set("sort", "asc")

	var page itemsPage[rawComment]
	if err := c.call(ctx, "wall.getComments", params, &page); err != nil {
		return nil, err
	}
	out := make([]domain.Comment, 0, len(page.Items))
	for _, rc := range page.Items {
		cm := rc.comment()
		cm.PostID = postID
		if cm.OwnerID == 0 {
			cm.OwnerID = ownerID
		}
		out = append(out, cm)
	}
	return out, nil
}
