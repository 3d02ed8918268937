package client

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/domain"

	"github.com/stretchr/testify/require"
)

// catalogServer serves fixed HTML keyed by request URI and counts hits.
type catalogServer struct {
	*httptest.Server

	mu    sync.Mutex
	pages map[string]string
	hits  map[string]int
}

func newCatalogServer(t *testing.T, pages map[string]string) *catalogServer {
	t.Helper()
	s := &catalogServer{pages: pages, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.RequestURI()]++
		body, ok := s.pages[r.URL.RequestURI()]
		s.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *catalogServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func testFetcher() Fetcher {
	return NewFetcher(config.CatalogConfig{Timeout: 5, UserAgent: "Mozilla/5.0 (test)"}, nil)
}

func drain(seq iter.Seq2[string, error]) ([]string, error) {
	var urls []string
	for u, err := range seq {
		if err != nil {
			return urls, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func TestFetchParsesDocument(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>  AK-47 | Redline </h1></body></html>`))
	}))
	defer srv.Close()

	doc, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "Mozilla/5.0 (test)", userAgent)
	require.Equal(t, "  AK-47 | Redline ", doc.Find("h1").Text())
}

func TestFetchDecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><body><h1>Pok\xe9mon</h1></body></html>"))
	}))
	defer srv.Close()

	doc, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "Pokémon", doc.Find("h1").Text())
}

func TestFetchErrors(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

	testCases := []struct {
		name       string
		handler    http.HandlerFunc
		wantKind   domain.FetchErrorKind
		wantStatus int
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			wantKind:   domain.FetchStatus,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantKind:   domain.FetchStatus,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "declared binary",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write(png)
			},
			wantKind:   domain.FetchDecode,
			wantStatus: http.StatusOK,
		},
		{
			name: "mislabelled binary",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write(png)
			},
			wantKind:   domain.FetchDecode,
			wantStatus: http.StatusOK,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(test.handler)
			defer srv.Close()

			_, err := testFetcher().Fetch(context.Background(), srv.URL)

			var fe *domain.FetchError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, test.wantKind, fe.Kind)
			require.Equal(t, test.wantStatus, fe.StatusCode)
			require.Equal(t, srv.URL, fe.URL)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testFetcher().Fetch(context.Background(), url)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, domain.FetchUnreachable, fe.Kind)
}

func TestFetchDoesNotRetry(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{})

	_, err := testFetcher().Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	require.Equal(t, 1, srv.Hits("/missing"))
}

type roundRobinProxies struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

func (p *roundRobinProxies) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	proxyURL := p.proxies[p.next%len(p.proxies)]
	p.next++
	return proxyURL
}

// newForwardProxy answers every proxied request with a fixed page.
func newForwardProxy(t *testing.T, hits *atomic.Int32) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>` + r.URL.Host + `</h1></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetchSwitchesProxyAfterUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	var hits atomic.Int32
	live := newForwardProxy(t, &hits)

	f := NewFetcher(config.CatalogConfig{Timeout: 5, UserAgent: "test"}, &roundRobinProxies{proxies: []string{deadURL, live}})

	_, err := f.Fetch(context.Background(), "http://csgostash.test/weapon")
	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, domain.FetchUnreachable, fe.Kind)
	require.Zero(t, hits.Load())

	doc, err := f.Fetch(context.Background(), "http://csgostash.test/weapon")
	require.NoError(t, err)
	require.Equal(t, "csgostash.test", doc.Find("h1").Text())
	require.Equal(t, int32(1), hits.Load())
}

func TestFetchWhileRotatingProxies(t *testing.T) {
	var hits atomic.Int32
	proxies := &roundRobinProxies{proxies: []string{newForwardProxy(t, &hits), newForwardProxy(t, &hits)}}
	c := NewFetcher(config.CatalogConfig{Timeout: 5, UserAgent: "test"}, proxies).(*catalogClient)

	errs := make(chan error, 8)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := c.Fetch(context.Background(), "http://csgostash.test/sticker")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			c.rotateProxy()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int32(8), hits.Load())
	require.Len(t, c.clients, 2)
}

func TestPaginateDeduplicates(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"/weapon": `<html><body>
			<ul class="pagination">
				<li><a href="/weapon">1</a></li>
				<li><a href="/weapon?page=2">2</a></li>
				<li><a href="/weapon?page=3">3</a></li>
			</ul>
			<ul class="pagination">
				<li><a href="/weapon?page=2">next</a></li>
			</ul>
		</body></html>`,
	})
	start := srv.URL + "/weapon"

	urls, err := drain(Paginate(context.Background(), testFetcher(), config.DefaultSelectors(), start))
	require.NoError(t, err)
	require.Equal(t, []string{start, srv.URL + "/weapon?page=2", srv.URL + "/weapon?page=3"}, urls)

	// linked pages are not fetched
	require.Equal(t, 1, srv.Hits("/weapon"))
	require.Equal(t, 0, srv.Hits("/weapon?page=2"))
}

func TestPaginateSkipsRepeatedAndPlaceholderLinks(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"/sticker": `<ul class="pagination">
			<li class="disabled"><a href="#">&laquo;</a></li>
			<li><a href="?page=2">2</a></li>
			<li><a>…</a></li>
			<li><a href="?page=3">3</a></li>
			<li><a href="?page=2#top">&raquo;</a></li>
		</ul>`,
	})
	start := srv.URL + "/sticker"

	urls, err := drain(Paginate(context.Background(), testFetcher(), config.DefaultSelectors(), start))
	require.NoError(t, err)
	require.Equal(t, []string{start, srv.URL + "/sticker?page=2", srv.URL + "/sticker?page=3"}, urls)
}

func TestPaginateSinglePage(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"/collection": `<html><body><div class="details-link"><a href="/c/1">one</a></div></body></html>`,
	})
	start := srv.URL + "/collection"

	urls, err := drain(Paginate(context.Background(), testFetcher(), config.DefaultSelectors(), start))
	require.NoError(t, err)
	require.Equal(t, []string{start}, urls)
}

func TestPaginateIsLazy(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{"/weapon": `<ul class="pagination"></ul>`})
	start := srv.URL + "/weapon"

	for u := range Paginate(context.Background(), testFetcher(), config.DefaultSelectors(), start) {
		require.Equal(t, start, u)
		break
	}
	require.Equal(t, 0, srv.Hits("/weapon"))
}

func TestPaginateFetchFailure(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{})
	start := srv.URL + "/gone"

	urls, err := drain(Paginate(context.Background(), testFetcher(), config.DefaultSelectors(), start))
	require.Equal(t, []string{start}, urls)
	require.True(t, domain.IsFetchError(err))
}

func TestCollectLinksBlockContainers(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"/weapon": `<html><body>
			<div class="col-md-4"><div class="well details-link"><a href="/skin/1/ak-47-redline">AK</a><a href="/other">x</a></div></div>
			<div class="details-link"><span>decorative</span></div>
			<div class="details-link"><a href="https://cdn.example.com/skin/2">M4</a></div>
			<div class="details-link"><a href="/skin/1/ak-47-redline">AK again</a></div>
			<a class="details-link" href="/ignored-because-divs-matched">anchor variant</a>
		</body></html>`,
	})

	urls, err := drain(CollectLinks(context.Background(), testFetcher(), config.DefaultSelectors(), srv.URL+"/weapon", "details-link"))
	require.NoError(t, err)
	require.Equal(t, []string{
		srv.URL + "/skin/1/ak-47-redline",
		"https://cdn.example.com/skin/2",
		srv.URL + "/skin/1/ak-47-redline",
	}, urls)
}

func TestCollectLinksAnchorFallback(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"/sticker": `<html><body>
			<span class="details-link">not a container tag</span>
			<a class="btn details-link" href="/sticker/1">one</a>
			<a class="details-link" href="/sticker/2">two</a>
			<a class="details-link" href="sticker/3">three</a>
		</body></html>`,
	})

	urls, err := drain(CollectLinks(context.Background(), testFetcher(), config.DefaultSelectors(), srv.URL+"/sticker", "details-link"))
	require.NoError(t, err)
	require.Equal(t, []string{
		srv.URL + "/sticker/1",
		srv.URL + "/sticker/2",
		srv.URL + "/sticker/3",
	}, urls)
}

func TestCollectLinksMarkupMismatch(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"/weapon": `<html><body><div class="item-box"><a href="/skin/1">AK</a></div></body></html>`,
	})

	urls, err := drain(CollectLinks(context.Background(), testFetcher(), config.DefaultSelectors(), srv.URL+"/weapon", "details-link"))
	require.Empty(t, urls)

	var mismatch *domain.MarkupShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, []string{"div.details-link", "a.details-link"}, mismatch.Tried)
}

func TestCollectLinksUsesFirstAnchorOnly(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"/weapon": `<html><body>
			<div class="details-link"><a name="top">anchor without href</a><a href="/skin/1">AK</a></div>
			<div class="details-link"><a href="#">placeholder</a><a href="/skin/2">M4</a></div>
			<div class="details-link"><a href="/skin/3">AWP</a><a href="/skin/4">second</a></div>
		</body></html>`,
	})

	urls, err := drain(CollectLinks(context.Background(), testFetcher(), config.DefaultSelectors(), srv.URL+"/weapon", "details-link"))
	require.NoError(t, err)
	require.Equal(t, []string{srv.URL + "/skin/3"}, urls)
}

func TestMenuLinks(t *testing.T) {
	srv := newCatalogServer(t, map[string]string{
		"/": `<html><body><ul class="nav">
			<li class="dropdown">
				<a href="#" class="dropdown-toggle">Rifles</a>
				<ul><li><a href="/weapon/AK-47">AK-47</a></li><li><a href="/weapon/M4A4">M4A4</a></li></ul>
			</li>
			<li class="dropdown">
				<a href="#">Pistols</a>
				<ul><li><a href="/weapon/Glock-18">Glock-18</a></li></ul>
			</li>
		</ul></body></html>`,
	})

	urls, err := drain(MenuLinks(context.Background(), testFetcher(), config.DefaultSelectors(), srv.URL+"/", "Rifles"))
	require.NoError(t, err)
	require.Equal(t, []string{srv.URL + "/weapon/AK-47", srv.URL + "/weapon/M4A4"}, urls)

	urls, err = drain(MenuLinks(context.Background(), testFetcher(), config.DefaultSelectors(), srv.URL+"/", "Knives"))
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestResolveURL(t *testing.T) {
	got, err := ResolveURL("https://csgostash.com/weapon/AK-47", "?page=2")
	require.NoError(t, err)
	require.Equal(t, "https://csgostash.com/weapon/AK-47?page=2", got)

	got, err = ResolveURL("https://csgostash.com/", "https://csgostash.com/skin/1")
	require.NoError(t, err)
	require.Equal(t, "https://csgostash.com/skin/1", got)
}
