package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/rpupo63/inkwell/models"
)

var (
	// Color styles for terminal output
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

// Printer writes styled messages to one writer
type Printer struct {
	w io.Writer
}

func New(w io.Writer) Printer {
	return Printer{w: w}
}

// Success prints a success message
func (p Printer) Success(format string, args ...interface{}) {
	fmt.Fprint(p.w, successStyle.Render("✓ "))
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Warning prints a warning message
func (p Printer) Warning(format string, args ...interface{}) {
	fmt.Fprint(p.w, warningStyle.Render("⚠ "))
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Error prints an error message
func (p Printer) Error(format string, args ...interface{}) {
	fmt.Fprint(p.w, errorStyle.Render("✗ "))
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Info prints an info message
func (p Printer) Info(format string, args ...interface{}) {
	fmt.Fprint(p.w, infoStyle.Render("ℹ "))
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Muted prints a muted message
func (p Printer) Muted(format string, args ...interface{}) {
	fmt.Fprintln(p.w, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header
func (p Printer) Section(title string) {
	fmt.Fprintln(p.w, primaryStyle.Render(title))
	fmt.Fprintln(p.w, mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
}

// JSON prints v as indented JSON
func (p Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// StatusIcon returns a colored status icon
func StatusIcon(status models.Status) string {
	switch status {
	case models.StatusPublished:
		return successStyle.Render("●")
	case models.StatusDraft:
		return warningStyle.Render("○")
	default:
		return mutedStyle.Render("•")
	}
}

// PostTable prints one line per post
func (p Printer) PostTable(posts []models.Post) {
	if len(posts) == 0 {
		p.Muted("No posts")
		return
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tSTATUS\tUPDATED\tTAGS")
	for _, post := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			StatusIcon(post.Status),
			post.ID,
			post.Title,
			post.Status,
			post.UpdatedAt.Format("2006-01-02 15:04"),
			strings.Join(post.Tags, ", "),
		)
	}
	tw.Flush()
}

// Post prints a post in full
func (p Printer) Post(post models.Post, link string) {
	p.Section(post.Title)
	fmt.Fprintf(p.w, "%s %s  %s\n", StatusIcon(post.Status), post.Status, post.ID)
	p.Muted("created %s, updated %s", post.CreatedAt.Format("2006-01-02 15:04"), post.UpdatedAt.Format("2006-01-02 15:04"))
	if len(post.Tags) > 0 {
		p.Muted("tags: %s", strings.Join(post.Tags, ", "))
	}
	if post.CoverImage != "" {
		p.Muted("cover: %s", post.CoverImage)
	}
	if link != "" {
		fmt.Fprintln(p.w, infoStyle.Render(link))
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, models.StripMarkup(post.Content))
}
