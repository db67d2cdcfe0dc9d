package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

var ErrUnableToConnect = errors.New("impossible de se connecter, vérifiez les identifiants de l'administrateur")

const maxFailures = 4

type Session struct {
	cfg    *utils.ArchiverConfig
	scheme string
	log    *slog.Logger

	jar       http.CookieJar
	collector *colly.Collector
	images    *resty.Client
	limiter   *rate.Limiter

	sid string
	tid string

	sleep func(ctx context.Context, d time.Duration) error
}

func NewSession(cfg *utils.ArchiverConfig) *Session {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	s := &Session{
		cfg:     cfg,
		scheme:  "http",
		log:     slog.Default().With("component", "session"),
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleep,
	}
	s.reset()
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// reset drops every cookie of the previous connection.
func (s *Session) reset() {
	jar, _ := cookiejar.New(nil)
	s.jar = jar
	s.collector = NewArchiverCollector(jar)
	s.images = NewImageClient(jar)
	s.sid, s.tid = "", ""
}

func (s *Session) URL(path string, params url.Values) string {
	u := url.URL{
		Scheme: s.scheme,
		Host:   s.cfg.URL,
		Path:   path,
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func (s *Session) fetch(ctx context.Context, path string, params url.Values) (*Page, error) {
	if params == nil {
		params = url.Values{}
	}
	if s.cfg.TemporaryTheme != "" && !strings.HasPrefix(path, "/admin") {
		params.Set("change_temp", s.cfg.TemporaryTheme)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c := s.collector.Clone()
	c.Context = ctx
	var (
		page *Page
		perr error
	)
	c.OnResponse(func(r *colly.Response) {
		page, perr = newPageFromResponse(r)
	})
	if err := c.Visit(s.URL(path, params)); err != nil {
		return nil, err
	}
	if perr != nil {
		return nil, perr
	}
	if page == nil {
		return nil, fmt.Errorf("no response for %s", path)
	}
	return page, nil
}

func (s *Session) cookie(suffix string) string {
	u, _ := url.Parse(s.URL("/", nil))
	for _, c := range s.jar.Cookies(u) {
		if strings.HasSuffix(c.Name, suffix) {
			return c.Value
		}
	}
	return ""
}

// Connect logs in as the administrator and reads the admin panel token.
func (s *Session) Connect(ctx context.Context) error {
	s.log.Debug("Connecting", "url", s.cfg.URL)
	s.reset()

	params := url.Values{
		"autologin": {"1"},
		"login":     {"Connexion"},
		"password":  {s.cfg.AdminPassword},
		"username":  {s.cfg.AdminName},
		"redirect":  {""},
	}
	if _, err := s.fetch(ctx, utils.LOGIN_PATH, params); err != nil {
		return errors.Join(ErrUnableToConnect, err)
	}

	s.sid = s.cookie("sid")
	if s.sid == "" {
		s.log.Error("Login failed")
		return ErrUnableToConnect
	}

	page, err := s.fetch(ctx, utils.ADMIN_PATH, nil)
	if err != nil {
		return errors.Join(ErrUnableToConnect, err)
	}
	s.tid = page.URL.Query().Get("tid")
	if s.tid == "" {
		s.log.Error("No admin token", "url", page.URL.String())
		return ErrUnableToConnect
	}
	return nil
}

func (s *Session) healthy(page *Page) bool {
	return s.sid != "" && page.OK() && !page.LoggedOut()
}

func (s *Session) get(ctx context.Context, path string, params url.Values, admin bool) (*Page, error) {
	attempt := func() (*Page, error) {
		p := url.Values{}
		for k, v := range params {
			p[k] = v
		}
		if admin {
			p.Set("extended_admin", "1")
			p.Set("tid", s.tid)
		}
		return s.fetch(ctx, path, p)
	}

	// admin pages need the panel token, which only Connect reads
	ready := func() bool { return !admin || s.tid != "" }

	var (
		page *Page
		err  error
	)
	if ready() {
		page, err = attempt()
	}
	failures := 0
	for !ready() || err != nil || !s.healthy(page) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if failures >= maxFailures {
			return nil, fmt.Errorf("%w: %s", ErrUnableToConnect, path)
		}
		failures++
		if err != nil {
			s.log.Debug("Fetch failed", "path", path, "error", err)
		}

		if failures >= 2 {
			s.log.Info("Connection failed twice, waiting before retrying", "wait", s.cfg.RetryWait)
			if err := s.sleep(ctx, s.cfg.RetryWait); err != nil {
				return nil, err
			}
		}

		if err := s.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Debug("Reconnection failed", "path", path, "error", err)
			continue
		}
		page, err = attempt()
	}
	return page, nil
}

// Get fetches a page of the forum, reconnecting when the session was lost.
func (s *Session) Get(ctx context.Context, path string, params url.Values) (*Page, error) {
	return s.get(ctx, path, params, false)
}

// GetAdmin fetches a page of the administration panel.
func (s *Session) GetAdmin(ctx context.Context, path string, params url.Values) (*Page, error) {
	return s.get(ctx, path, params, true)
}

// GetImage downloads an image, relative URLs are resolved against the forum.
func (s *Session) GetImage(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		base, _ := url.Parse(s.URL("/", nil))
		u = base.ResolveReference(u)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.images.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("image %s: %s", u, resp.Status())
	}
	return resp.Body(), nil
}
