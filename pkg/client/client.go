package client

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly/v2"
)

const UserAgent = "Mozilla/5.0 (Windows NT 6.1; WOW64; rv:41.0) Gecko/20100101 Firefox/41.0"

func NewCompatClient(jar http.CookieJar) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DisableKeepAlives: true,
	}
	return &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   60 * time.Second,
	}
}

// NewArchiverCollector returns the collector every page fetch is cloned
// from. Clones share its backend, so they share the cookie jar too.
func NewArchiverCollector(jar http.CookieJar) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetClient(NewCompatClient(jar))
	return c
}

func NewImageClient(jar http.CookieJar) *resty.Client {
	return resty.NewWithClient(NewCompatClient(jar)).
		SetHeader("User-Agent", UserAgent).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)
}
