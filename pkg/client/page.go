package client

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

// Page is a fetched document. URL is the address after redirects.
type Page struct {
	URL     *url.URL
	Status  int
	Body    []byte
	Charset string
	Doc     *goquery.Document
}

func NewPage(u *url.URL, status int, contentType string, body []byte) (*Page, error) {
	_, name, _ := charset.DetermineEncoding(body, contentType)
	// colly only decodes bodies whose charset is in the header
	if !strings.Contains(strings.ToLower(contentType), "charset=") && name != "utf-8" {
		if e, _ := charset.Lookup(name); e != nil {
			if decoded, err := e.NewDecoder().Bytes(body); err == nil {
				body = decoded
			}
		}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Page{
		URL:     u,
		Status:  status,
		Body:    body,
		Charset: name,
		Doc:     doc,
	}, nil
}

func newPageFromResponse(r *colly.Response) (*Page, error) {
	contentType := ""
	if r.Headers != nil {
		contentType = r.Headers.Get("Content-Type")
	}
	return NewPage(r.Request.URL, r.StatusCode, contentType, r.Body)
}

func (p *Page) OK() bool {
	return p.Status >= 200 && p.Status < 300
}

// LoggedOut reports whether the page still offers the login link, which
// Forumactif shows to anonymous visitors.
func (p *Page) LoggedOut() bool {
	out := false
	p.Doc.Find(".mainmenu").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if href, _ := s.Attr("href"); href == "/login" {
			out = true
			return false
		}
		return true
	})
	return out
}
