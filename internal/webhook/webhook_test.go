package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

type recorder struct {
	mu   sync.Mutex
	hits []*url.URL
}

func (r *recorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.hits = append(r.hits, req.URL)
		r.mu.Unlock()

		w.WriteHeader(status)
	}
}

func testReview() *review.Review {
	return &review.Review{
		ID:    7,
		Token: "tok",
		Versions: []review.Version{
			{Change: 10, Pending: true},
			{Change: 12, Pending: true},
		},
		Projects: map[string][]string{
			"core": {"main"}, "web": {"main"}, "docs": {"main"},
		},
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{CallbackBase: "https://swarm.test/"})
	got := c.Expand(
		"http://ci/build?r={review}&c={change}&v={version}"+
			"&pass={pass}&fail={fail}",
		KindTests, testReview(), 12, 2,
	)

	u, err := url.Parse(got)
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "7", q.Get("r"))
	require.Equal(t, "12", q.Get("c"))
	require.Equal(t, "2", q.Get("v"))
	require.Equal(t, "https://swarm.test/reviews/7/tests/pass/tok",
		q.Get("pass"))
	require.Equal(t, "https://swarm.test/reviews/7/tests/fail/tok",
		q.Get("fail"))
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	ok, failing := &recorder{}, &recorder{}
	okSrv := httptest.NewServer(ok.handler(http.StatusOK))
	t.Cleanup(okSrv.Close)
	failSrv := httptest.NewServer(
		failing.handler(http.StatusInternalServerError),
	)
	t.Cleanup(failSrv.Close)

	dir := directory.NewStatic(directory.File{
		Projects: []directory.Project{
			{
				ID: "core",
				Tests: directory.Webhook{
					Enabled: true,
					URL:     okSrv.URL + "/run?change={change}",
				},
				Deploy: directory.Webhook{
					Enabled: true, URL: okSrv.URL + "/deploy",
				},
			},
			{
				ID: "web",
				Tests: directory.Webhook{
					Enabled: true, URL: failSrv.URL + "/run",
				},
			},
			{
				ID: "docs",
				Tests: directory.Webhook{
					URL: okSrv.URL + "/disabled",
				},
			},
		},
	})

	c := NewClient(Config{CallbackBase: "https://swarm.test"})
	ctx := context.Background()

	require.Equal(t, 1, c.Trigger(ctx, dir, KindTests, testReview()))
	require.Len(t, ok.hits, 1)
	require.Equal(t, "/run", ok.hits[0].Path)
	require.Equal(t, "12", ok.hits[0].Query().Get("change"))
	require.Len(t, failing.hits, 1)

	require.Equal(t, 1, c.Trigger(ctx, dir, KindDeploy, testReview()))
	require.Equal(t, "/deploy", ok.hits[1].Path)

	// Reviews without versions have nothing to test.
	empty := testReview()
	empty.Versions = nil
	require.Zero(t, c.Trigger(ctx, dir, KindTests, empty))
}
