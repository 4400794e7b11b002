package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ignite/leadharvest/internal/domain"
)

// CommentHeader is the first row of the comments file.
var CommentHeader = []string{"post_id", "comment_id", "text"}

// AppendComments appends comments to the CSV at path, skipping comment ids
// already in the file or repeated within the batch. Returns rows written.
func AppendComments(path string, comments []domain.Comment) (int, error) {
	existing, err := readCommentIDs(path)
	if err != nil {
		return 0, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create comments dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(existing) == 0 {
		if info, err := f.Stat(); err == nil && info.Size() == 0 {
			if err := w.Write(CommentHeader); err != nil {
				return 0, fmt.Errorf("write header: %w", err)
			}
		}
	}

	written := 0
	for _, c := range comments {
		if _, dup := existing[c.ID]; dup {
			continue
		}
		existing[c.ID] = struct{}{}
		if err := w.Write([]string{
			strconv.FormatInt(c.PostID, 10),
			strconv.FormatInt(c.ID, 10),
			c.Text,
		}); err != nil {
			return written, fmt.Errorf("write comment %d: %w", c.ID, err)
		}
		written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("flush %s: %w", path, err)
	}
	return written, nil
}

func readCommentIDs(path string) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ids, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(rec) < 2 {
			continue
		}
		if id, err := strconv.ParseInt(rec[1], 10, 64); err == nil {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// CommentsFile appends harvested comments to one CSV file.
type CommentsFile struct {
	Path string
}

// AppendComments appends to the file, skipping known comment ids.
func (f CommentsFile) AppendComments(comments []domain.Comment) (int, error) {
	return AppendComments(f.Path, comments)
}
