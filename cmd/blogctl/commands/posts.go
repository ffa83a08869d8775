package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
	"github.com/rpupo63/inkwell/services"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check the admin password",
		Long: `Check the admin password given with --password.

When no password has been set yet, the given one becomes the admin password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.password == "" {
				return errs.NewMissingRequiredFieldError("password")
			}
			if a.bootstrapped {
				a.out.Success("Admin password set")
				return nil
			}
			a.out.Success("Logged in")
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		all    bool
		search string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Long: `List posts, newest first.

Examples:
  blogctl list                          # Published posts
  blogctl list --all --password PW      # Drafts included
  blogctl list --search golang --json   # Filter by title, excerpt and tags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && !a.gate.IsAdmin() {
				a.out.Warning("--all needs the admin password, listing published posts only")
			}

			posts, err := a.model.LoadPosts(cmd.Context(), !all)
			if err != nil {
				return err
			}
			if search != "" {
				posts = database.Search(posts, search)
			}

			if a.jsonOutput {
				return a.out.JSON(posts)
			}
			a.out.PostTable(posts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include drafts (admin only)")
	cmd.Flags().StringVar(&search, "search", "", "Only posts whose title, excerpt or tags contain this text")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := a.model.LoadPost(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			if post == nil {
				return errs.NewNotFound("post")
			}

			if a.jsonOutput {
				return a.out.JSON(post)
			}
			a.out.Post(*post, services.BuildPostURL(services.GetBaseURL(a.cfg), post.ID))
			return nil
		},
	}
}

// postFlags are the editable fields shared by create and update
type postFlags struct {
	title   string
	content string
	excerpt string
	tags    []string
	cover   string
	status  string
	draft   bool
}

func (f *postFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Post title")
	cmd.Flags().StringVar(&f.content, "content", "", "Post body (HTML)")
	cmd.Flags().StringVar(&f.excerpt, "excerpt", "", "Summary; derived from the content when not given")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "Comma-separated tags")
	cmd.Flags().StringVar(&f.cover, "cover", "", "Cover image URL")
	cmd.Flags().StringVar(&f.status, "status", "", "published or draft")
	cmd.Flags().BoolVar(&f.draft, "draft", false, "Shorthand for --status draft")
}

// fields returns the flags the user actually set
func (f *postFlags) fields(cmd *cobra.Command) models.PostFields {
	var fields models.PostFields
	flags := cmd.Flags()
	if flags.Changed("title") {
		fields.Title = &f.title
	}
	if flags.Changed("content") {
		fields.Content = &f.content
	}
	if flags.Changed("excerpt") {
		fields.Excerpt = &f.excerpt
	}
	if flags.Changed("tags") {
		tags := append([]string{}, f.tags...)
		fields.Tags = &tags
	}
	if flags.Changed("cover") {
		fields.CoverImage = &f.cover
	}
	if flags.Changed("status") {
		status := models.Status(strings.ToLower(strings.TrimSpace(f.status)))
		fields.Status = &status
	}
	if f.draft {
		status := models.StatusDraft
		fields.Status = &status
	}
	return fields
}

func newCreateCmd(a *app) *cobra.Command {
	var f postFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new post",
		Long: `Write a new post. Posts are published unless --draft is given.

Examples:
  blogctl create --password PW --title "Hello" --content "<p>First post</p>" --tags go,web
  blogctl create --password PW --title "WIP" --content "<p>...</p>" --draft`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := f.fields(cmd)
			if fields.Title == nil || strings.TrimSpace(*fields.Title) == "" {
				return errs.NewMissingRequiredFieldError("title")
			}
			if fields.Content == nil || models.BlankContent(*fields.Content) {
				return errs.NewMissingRequiredFieldError("content")
			}

			post, err := a.model.CreatePost(cmd.Context(), fields)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return a.out.JSON(post)
			}
			a.out.Success("Created %s (%s)", post.ID, post.Status)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var f postFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of a post",
		Long: `Change the given fields of a post; everything else is kept.

Examples:
  blogctl update ID --password PW --status published
  blogctl update ID --password PW --tags go,testing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := f.fields(cmd)
			if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
				return errs.NewInvalidFieldError("title", "title must not be blank")
			}
			if fields.Content != nil && models.BlankContent(*fields.Content) {
				return errs.NewInvalidFieldError("content", "content must not be empty")
			}

			post, err := a.model.UpdatePost(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return a.out.JSON(post)
			}
			a.out.Success("Updated %s (%s)", post.ID, post.Status)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post for good",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.model.DeletePost(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.out.Success("Deleted %s", args[0])
			return nil
		},
	}
}
