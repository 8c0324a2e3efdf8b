package mail

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Body is a rendered mail body.
type Body struct {
	Text string
	HTML string
}

// Renderer turns activity into mail bodies. The markdown source doubles as
// the plain text part.
type Renderer struct {
	md      goldmark.Markdown
	policy  *bluemonday.Policy
	baseURL string
}

// NewRenderer returns a renderer linking reviews under baseURL.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:  bluemonday.UGCPolicy(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Render builds the body of task t describing rec.
func (r *Renderer) Render(t Task, rec activity.Record) (Body, error) {
	src := r.markdown(t, rec)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return Body{}, fmt.Errorf("render review %d mail: %w",
			t.ReviewID(), err)
	}

	return Body{
		Text: src,
		HTML: r.policy.Sanitize(buf.String()),
	}, nil
}

func (r *Renderer) markdown(t Task, rec activity.Record) string {
	var b strings.Builder

	target := rec.Target
	if r.baseURL != "" {
		target = fmt.Sprintf("[%s](%s/reviews/%d)", rec.Target,
			r.baseURL, t.ReviewID())
	}
	fmt.Fprintf(&b, "**%s** %s %s", rec.User, rec.Action, target)
	if rec.Preposition != "" && rec.Change != 0 {
		fmt.Fprintf(&b, " %s change %d", rec.Preposition, rec.Change)
	}
	b.WriteString("\n")

	if rec.Description != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(rec.Description, "\n") {
			b.WriteString("> " + line + "\n")
		}
	}

	if files, ok := rec.Details["files"].(string); ok && files != "" {
		fmt.Fprintf(&b, "\nFiles: %s\n", files)
	}

	return b.String()
}
