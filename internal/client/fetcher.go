package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"sync"
	"sync/atomic"
	"time"

	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/domain"
	"csgostash/scraper/internal/proxy"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"resty.dev/v3"
)

// Fetcher retrieves a catalog page and parses it into a queryable document.
// Implementations issue exactly one GET per call and never retry.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

var acceptedMediaTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
	"text/plain":            true,
}

// catalogClient keeps one resty client per proxy. Rotation swaps which
// client new requests use; requests already in flight keep theirs.
type catalogClient struct {
	cfg           config.CatalogConfig
	proxySupplier proxy.ProxySupplier
	proxyMutex    sync.Mutex
	clients       map[string]*resty.Client // by proxy URL, "" for direct
	current       atomic.Pointer[resty.Client]
}

func NewFetcher(cfg config.CatalogConfig, proxySupplier proxy.ProxySupplier) Fetcher {
	c := &catalogClient{
		cfg:           cfg,
		proxySupplier: proxySupplier,
		clients:       make(map[string]*resty.Client),
	}

	proxyURL := ""
	if proxySupplier != nil {
		if proxyURL = proxySupplier.Get(); proxyURL != "" {
			log.Infof("🔗 Using initial proxy: %s", proxyURL)
		}
	}
	c.current.Store(c.clientFor(proxyURL))

	return c
}

// clientFor returns the client that goes out through proxyURL. Callers hold
// proxyMutex unless the fetcher is not shared yet.
func (c *catalogClient) clientFor(proxyURL string) *resty.Client {
	if client, ok := c.clients[proxyURL]; ok {
		return client
	}

	client := resty.New().
		SetTimeout(time.Duration(c.cfg.Timeout)*time.Second).
		SetRetryCount(0).
		SetHeader("User-Agent", c.cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5")

	if c.cfg.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	}
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	c.clients[proxyURL] = client
	return client
}

func (c *catalogClient) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.current.Load().R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &domain.FetchError{URL: url, Kind: domain.FetchUnreachable, Err: ctx.Err()}
		}
		// The next request goes out through another proxy; this one is not retried.
		c.rotateProxy()
		return nil, &domain.FetchError{URL: url, Kind: domain.FetchUnreachable, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, &domain.FetchError{URL: url, Kind: domain.FetchStatus, StatusCode: resp.StatusCode()}
	}

	doc, err := decodeHTML(resp.Bytes(), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, &domain.FetchError{URL: url, Kind: domain.FetchDecode, StatusCode: resp.StatusCode(), Err: err}
	}

	log.Debugf("Fetched %s (%d bytes)", url, len(resp.Bytes()))
	return doc, nil
}

func (c *catalogClient) rotateProxy() {
	if c.proxySupplier == nil {
		return
	}

	c.proxyMutex.Lock()
	defer c.proxyMutex.Unlock()

	if newProxy := c.proxySupplier.Get(); newProxy != "" {
		log.Infof("🔄 Switching to proxy: %s", newProxy)
		c.current.Store(c.clientFor(newProxy))
	}
}

// decodeHTML parses body as HTML, converting it to UTF-8 first. Bodies that
// are declared or sniffed as anything other than text are rejected.
func decodeHTML(body []byte, contentType string) (*goquery.Document, error) {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("invalid content type %q: %w", contentType, err)
		}
		if !acceptedMediaTypes[mediaType] {
			return nil, fmt.Errorf("unexpected content type %q", mediaType)
		}
	}

	if detected := mimetype.Detect(body); !isText(detected) {
		return nil, fmt.Errorf("body is %s, not HTML", detected.String())
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
