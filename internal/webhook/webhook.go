// Package webhook triggers a project's automated test and deploy URLs when
// a review gets a new version.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

// Kind selects the test or the deploy hook of a project.
type Kind string

const (
	KindTests  Kind = "tests"
	KindDeploy Kind = "deploy"
)

// Config configures a Client.
type Config struct {
	// CallbackBase is the externally reachable root the hooks report
	// back to, e.g. "https://swarm.example.com".
	CallbackBase string

	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Client calls project webhooks.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for cfg.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		base: strings.TrimSuffix(cfg.CallbackBase, "/"),
		http: hc,
	}
}

// Trigger calls the kind hook of every project of r that has one enabled.
// Failures are logged and do not stop the remaining hooks; the number of
// successful calls is returned.
func (c *Client) Trigger(ctx context.Context, dir directory.Directory,
	kind Kind, r *review.Review) int {

	version := len(r.Versions)
	head, ok := r.HeadVersion()
	if !ok {
		return 0
	}

	triggered := 0
	for _, id := range r.ProjectIDs() {
		p, found := dir.Project(id)
		if !found {
			continue
		}

		hook := p.Tests
		if kind == KindDeploy {
			hook = p.Deploy
		}
		if !hook.Enabled || hook.URL == "" {
			continue
		}

		target := c.Expand(hook.URL, kind, r, head.Change, version)
		if err := c.call(ctx, target); err != nil {
			log.WarnS(ctx, "Webhook failed", err, "review_id", r.ID,
				"project", id, "kind", kind)
			continue
		}

		log.InfoS(ctx, "Webhook triggered", "review_id", r.ID,
			"project", id, "kind", kind, "version", version)
		triggered++
	}

	return triggered
}

// Expand fills the placeholders of a hook URL: {review}, {change},
// {version}, {status}, {pass}, {fail} and, for backwards compatibility,
// {update}. Values are query-escaped.
func (c *Client) Expand(raw string, kind Kind, r *review.Review,
	change int64, version int) string {

	callback := func(status string) string {
		return fmt.Sprintf("%s/reviews/%d/%s/%s/%s", c.base, r.ID,
			kind, status, r.Token)
	}

	status := url.QueryEscape(callback("running"))
	repl := strings.NewReplacer(
		"{review}", strconv.FormatInt(r.ID, 10),
		"{change}", strconv.FormatInt(change, 10),
		"{version}", strconv.Itoa(version),
		"{status}", status,
		"{update}", status,
		"{pass}", url.QueryEscape(callback(review.StatusPass)),
		"{fail}", url.QueryEscape(callback(review.StatusFail)),
	)

	return repl.Replace(raw)
}

func (c *Client) call(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, target, nil,
	)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	return nil
}
