package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rulegen/internal/store"
	"github.com/roach88/rulegen/internal/taskcomment"
)

// CommentsOptions holds flags shared by the comments subcommands.
type CommentsOptions struct {
	*RootOptions
	Database string
}

// NewCommentsCommand creates the comments command group.
func NewCommentsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommentsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Manage task comments",
		Long: `Add, list, show and delete comments attached to workflow tasks.

Comments live in the same SQLite database as the build cache.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default is the configured cache_db)")

	cmd.AddCommand(newCommentsAddCommand(opts))
	cmd.AddCommand(newCommentsListCommand(opts))
	cmd.AddCommand(newCommentsShowCommand(opts))
	cmd.AddCommand(newCommentsDeleteCommand(opts))

	return cmd
}

func newCommentsAddCommand(opts *CommentsOptions) *cobra.Command {
	var author, text string
	cmd := &cobra.Command{
		Use:           "add <task-id>",
		Short:         "Attach a comment to a task",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc taskcomment.Service, f *OutputFormatter) error {
				taskID, err := parseID("task-id", args[0])
				if err != nil {
					return err
				}
				id, err := svc.AddComment(ctx, taskID, taskcomment.Comment{Author: author, Text: text})
				if err != nil {
					return err
				}
				c, err := svc.GetCommentByID(ctx, id)
				if err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(c)
				}
				fmt.Fprintf(f.Writer, "%s Added comment %d to task %d\n", SuccessStyle.Render(checkMark), id, taskID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "comment author")
	cmd.Flags().StringVar(&text, "text", "", "comment text")
	return cmd
}

func newCommentsListCommand(opts *CommentsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <task-id>",
		Short:         "List a task's comments in insertion order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc taskcomment.Service, f *OutputFormatter) error {
				taskID, err := parseID("task-id", args[0])
				if err != nil {
					return err
				}
				comments, err := svc.GetComments(ctx, taskID)
				if err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(comments)
				}
				if len(comments) == 0 {
					fmt.Fprintf(f.Writer, "No comments on task %d\n", taskID)
					return nil
				}
				for _, c := range comments {
					printComment(f, c)
				}
				return nil
			})
		},
	}
}

func newCommentsShowCommand(opts *CommentsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <comment-id>",
		Short:         "Show a single comment",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc taskcomment.Service, f *OutputFormatter) error {
				id, err := parseID("comment-id", args[0])
				if err != nil {
					return err
				}
				c, err := svc.GetCommentByID(ctx, id)
				if err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(c)
				}
				printComment(f, c)
				return nil
			})
		},
	}
}

func newCommentsDeleteCommand(opts *CommentsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <task-id> <comment-id>",
		Short:         "Delete a comment from a task",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc taskcomment.Service, f *OutputFormatter) error {
				taskID, err := parseID("task-id", args[0])
				if err != nil {
					return err
				}
				id, err := parseID("comment-id", args[1])
				if err != nil {
					return err
				}
				if err := svc.DeleteComment(ctx, taskID, id); err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(map[string]int64{"deleted": id})
				}
				fmt.Fprintf(f.Writer, "%s Deleted comment %d\n", SuccessStyle.Render(checkMark), id)
				return nil
			})
		},
	}
}

// run opens the comment store and runs fn against it.
func (o *CommentsOptions) run(cmd *cobra.Command, fn func(context.Context, taskcomment.Service, *OutputFormatter) error) error {
	if err := o.prepare(cmd); err != nil {
		return err
	}
	formatter := &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: o.Verbose,
	}

	path := o.Database
	if path == "" {
		path = o.Config.CacheDB
	}
	if path == "" {
		return formatter.Fail(withCode(ErrCodeUsage, errors.New("no database: pass --db or set cache_db")))
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(withCode(ErrCodeStore, err))
	}
	defer st.Close()

	if err := fn(cmd.Context(), taskcomment.NewStoreService(st), formatter); err != nil {
		return formatter.Fail(err)
	}
	return nil
}

func printComment(f *OutputFormatter, c taskcomment.Comment) {
	fmt.Fprintf(f.Writer, "%s %s %s\n  %s\n",
		TitleStyle.Render(fmt.Sprintf("#%d", c.ID)),
		c.Author,
		MutedStyle.Render(c.AddedAt.Format(time.RFC3339)),
		c.Text)
}

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, withCode(ErrCodeUsage, fmt.Errorf("%s must be a positive integer, got %q", name, s))
	}
	return id, nil
}
