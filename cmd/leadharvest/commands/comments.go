package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/leadharvest/internal/export"
)

var commentPages int

func init() {
	commentsCmd.Flags().IntVar(&commentPages, "pages", 0, "Wall pages of 100 posts to read. Prompts when not given.")
	rootCmd.AddCommand(commentsCmd)
}

var commentsCmd = &cobra.Command{
	Use:   "comments [id|screen_name]",
	Short: "Collects wall comments of a group into the comments CSV.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ref, pages, err := commentsTarget(bufio.NewReader(os.Stdin), args, commentPages)
		if err != nil || ref == "" {
			return err
		}

		a := newApp(cmd)
		defer a.Close()
		if err := a.connect(ctx); err != nil {
			return err
		}

		sink := export.CommentsFile{Path: a.cfg.Harvest.CommentsFile}
		res, err := a.harvester().HarvestComments(ctx, ref, pages, sink)
		if res != nil {
			fmt.Printf("Posts read: %d, comments: %d, new rows in %s: %d\n", res.Posts, res.Comments, sink.Path, res.Written)
		}
		return err
	},
}

// commentsTarget takes the group from args and the page count from the
// flag, prompting for whichever is missing. An empty answer returns an
// empty ref and no error so the command exits without doing anything.
func commentsTarget(in *bufio.Reader, args []string, pages int) (string, int, error) {
	ref := ""
	if len(args) == 1 {
		ref = args[0]
	} else {
		ref = prompt(in, "Group id or screen name: ")
	}
	if ref == "" {
		return "", 0, nil
	}

	if pages > 0 {
		return ref, pages, nil
	}
	answer := prompt(in, "Pages of posts to read: ")
	if answer == "" {
		return "", 0, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("page count must be a positive number, got %q", answer)
	}
	return ref, n, nil
}

// prompt prints label and returns the trimmed answer. EOF reads as empty.
func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return ""
	}
	return strings.TrimSpace(line)
}
