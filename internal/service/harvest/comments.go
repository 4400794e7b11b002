package harvest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/vk"
)

const (
	// ScreenPosts is how many recent posts the comment screen reads.
	ScreenPosts = 5
	// CommentsPerPost is the comment page size.
	CommentsPerPost = 100
	// PostsPerPage is the wall page size for comment harvesting.
	PostsPerPage = 100
)

// commentIndex maps commenter id to their recent comment texts, lowercased.
type commentIndex struct {
	keywords []string
	byUser   map[int64][]string
}

// relevant reports whether the user left at least one recent comment
// containing a keyword. No comments means not relevant.
func (ci *commentIndex) relevant(userID int64) bool {
	for _, text := range ci.byUser[userID] {
		for _, kw := range ci.keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

// loadCommentIndex reads the group's last ScreenPosts posts and their
// comments inside the CommentMonths window. The returned index is never nil.
func (s *Service) loadCommentIndex(ctx context.Context, groupRef string) (*commentIndex, error) {
	idx := &commentIndex{byUser: make(map[int64][]string)}
	for _, kw := range s.opts.CommentKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			idx.keywords = append(idx.keywords, kw)
		}
	}

	if _, err := s.pacer.Wait(ctx); err != nil {
		return idx, err
	}
	posts, err := s.source.WallPosts(ctx, groupRef, 0, ScreenPosts)
	if err != nil {
		return idx, fmt.Errorf("load recent posts: %w", err)
	}

	since := s.now().Add(-time.Duration(s.opts.CommentMonths) * 30 * 24 * time.Hour)
	for _, p := range posts {
		if _, err := s.pacer.Wait(ctx); err != nil {
			return idx, err
		}
		comments, err := s.source.PostComments(ctx, p.OwnerID, p.ID, CommentsPerPost)
		if err != nil {
			if ctx.Err() != nil {
				return idx, ctx.Err()
			}
			log.Printf("[Harvest] group %s post %d: comments unavailable: %v", groupRef, p.ID, err)
			continue
		}
		for _, c := range comments {
			if c.FromID <= 0 || c.Date.Before(since) {
				continue
			}
			idx.byUser[c.FromID] = append(idx.byUser[c.FromID], strings.ToLower(c.Text))
		}
	}
	return idx, nil
}

// CommentSink receives harvested comments, one wall page at a time.
type CommentSink interface {
	AppendComments(comments []domain.Comment) (int, error)
}

// CommentResult summarises a comment harvest.
type CommentResult struct {
	Posts    int
	Comments int
	Written  int
}

// CleanCommentText flattens line breaks to spaces and trims the result.
func CleanCommentText(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}

// HarvestComments reads up to pages wall pages of groupRef and hands every
// non-blank comment to sink after each page. A closed wall ends the run
// without error.
func (s *Service) HarvestComments(ctx context.Context, groupRef string, pages int, sink CommentSink) (*CommentResult, error) {
	res := &CommentResult{}
	for page := 0; page < pages; page++ {
		if _, err := s.pacer.Wait(ctx); err != nil {
			return res, err
		}
		posts, err := s.source.WallPosts(ctx, groupRef, page*PostsPerPage, PostsPerPage)
		if err != nil {
			if vk.IsAccessDenied(err) {
				log.Printf("[Harvest] group %s: wall is closed", groupRef)
				return res, nil
			}
			return res, fmt.Errorf("wall page %d of %s: %w", page, groupRef, err)
		}
		if len(posts) == 0 {
			break
		}

		var batch []domain.Comment
		for _, p := range posts {
			res.Posts++
			if _, err := s.pacer.Wait(ctx); err != nil {
				return res, err
			}
			comments, err := s.source.PostComments(ctx, p.OwnerID, p.ID, CommentsPerPost)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				log.Printf("[Harvest] group %s post %d: comments unavailable: %v", groupRef, p.ID, err)
				continue
			}
			for _, c := range comments {
				text := CleanCommentText(c.Text)
				if text == "" {
					continue
				}
				c.Text = text
				batch = append(batch, c)
			}
		}

		res.Comments += len(batch)
		n, err := sink.AppendComments(batch)
		res.Written += n
		if err != nil {
			return res, fmt.Errorf("store comments: %w", err)
		}
		log.Printf("[Harvest] group %s page %d: %d posts, %d new comments", groupRef, page+1, len(posts), n)

		if len(posts) < PostsPerPage {
			break
		}
	}
	return res, nil
}
