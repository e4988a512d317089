// Package studia scrapes the course catalog of the StudiaOnline enrollment site.
package studia

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"seatwatch/internal/components/assert"
	"seatwatch/internal/components/telemetry"
	"seatwatch/internal/courses"
	"seatwatch/pkg/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	report_session_resolve = "session.resolve"
	report_session_landing = "session.landing"
	report_session_login   = "session.login"
)

const (
	DefaultBaseURL = "https://studiaonline.org/"
	DefaultTimeout = time.Second * 30
)

// DefaultBadDomains are parking and look-alike domains the site has been seen redirecting to.
var DefaultBadDomains = []string{"studiaonline.com", "hugedomains.com"}

// Credentials are the account used to log into the site.
type Credentials struct {
	Username string
	Password string
}

// LoginCheck decides whether the response to the login form means the login succeeded.
type LoginCheck func(finalUrl *url.URL, body string) bool

var failureWords = regexp.MustCompile(`(?i)error|incorrect|incorrecto|invalid`)

// BodyWordingCheck accepts any login response that does not mention an error. It rejects
// successful logins whose landing page happens to contain one of those words, and accepts
// failed logins that redirect back to an unremarkable page.
func BodyWordingCheck(_ *url.URL, body string) bool {
	return !failureWords.MatchString(body)
}

// Resolver is the subset of net.Resolver used to check that the site is reachable.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type Options struct {
	BaseURL    string
	BadDomains []string
	// Timeout applies to each request.
	Timeout           time.Duration
	RequestsPerSecond float64
	CloudflareBypass  bool
	// Dump receives the full text of every request, it may be nil.
	Dump       telemetry.MessageOutput
	LoginCheck LoginCheck
	Resolver   Resolver
	// Targets narrow the degraded extraction of malformed catalog pages.
	Targets  courses.Targets
	PageSize int
	MaxPages int
}

func DefaultOptions() Options {
	return Options{
		BaseURL:           DefaultBaseURL,
		BadDomains:        DefaultBadDomains,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: 2,
		LoginCheck:        BodyWordingCheck,
		Resolver:          net.DefaultResolver,
		PageSize:          DefaultPageSize,
		MaxPages:          DefaultMaxPages,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.BaseURL == "" {
		o.BaseURL = defaults.BaseURL
	}
	if o.BadDomains == nil {
		o.BadDomains = defaults.BadDomains
	}
	if o.Timeout <= 0 {
		o.Timeout = defaults.Timeout
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if o.LoginCheck == nil {
		o.LoginCheck = defaults.LoginCheck
	}
	if o.Resolver == nil {
		o.Resolver = defaults.Resolver
	}
	if o.PageSize <= 0 {
		o.PageSize = defaults.PageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = defaults.MaxPages
	}
	return o
}

// Session is an authenticated http client for one check, it should be discarded afterwards.
type Session struct {
	base *url.URL
	http *resty.Client
	opts Options
	tel  telemetry.API
}

func (o Options) badDomain(rawUrl string) string {
	for _, domain := range o.BadDomains {
		if domain != "" && strings.Contains(rawUrl, domain) {
			return domain
		}
	}
	return ""
}

func newSession(base *url.URL, opts Options, tel telemetry.API) (*Session, error) {
	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(base.String(), "/"))
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeaders(map[string]string{
		"user-agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"accept-language":           "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3",
		"upgrade-insecure-requests": "1",
	})
	// redirects are followed anywhere, the final url is checked against the bad domains instead
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	httpClient.SetTimeout(opts.Timeout)

	// max burst >= 1 just means that no requests will be dropped
	burst := max(int(opts.RequestsPerSecond), 1)
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Session{
		base: base,
		http: httpClient,
		opts: opts,
		tel:  tel,
	}, nil
}

// Login resolves the site, finds its login form and submits the credentials through it.
// The returned session carries the cookies of the logged in user.
func Login(ctx context.Context, opts Options, creds Credentials, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel)
	opts = opts.withDefaults()
	tel = telemetry.NewScopedAPI("studia_scraper", tel)

	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Hostname() == "" {
		err = fmt.Errorf("%w: invalid base url %q", ErrUnreachable, opts.BaseURL)
		tel.ReportBroken(report_session_resolve, err)
		return nil, err
	}
	if domain := opts.badDomain(opts.BaseURL); domain != "" {
		err = fmt.Errorf("%w: base url %s contains %s", ErrWrongEndpoint, opts.BaseURL, domain)
		tel.ReportBroken(report_session_resolve, err)
		return nil, err
	}

	addrs, err := opts.Resolver.LookupHost(ctx, base.Hostname())
	if err != nil {
		err = fmt.Errorf("%w: lookup %s: %w", ErrUnreachable, base.Hostname(), err)
		tel.ReportBroken(report_session_resolve, err)
		return nil, err
	}
	tel.ReportDebug("resolved", base.Hostname(), addrs)

	s, err := newSession(base, opts, tel)
	if err != nil {
		return nil, err
	}
	err = s.login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func finalUrl(res *resty.Response) *url.URL {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	parsed, _ := url.Parse(res.Request.URL)
	return parsed
}

// get performs a GET request, any non-2xx status is a transport failure.
func (s *Session) get(ctx context.Context, path string) (*resty.Response, error) {
	res, err := s.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, path, err)
	}
	if res.IsError() {
		return res, fmt.Errorf("%w: GET %s: %s", ErrTransport, path, res.Status())
	}
	return res, nil
}

func (s *Session) postForm(ctx context.Context, path string, form map[string]string) (*resty.Response, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %w", ErrTransport, path, err)
	}
	if res.IsError() {
		return res, fmt.Errorf("%w: POST %s: %s", ErrTransport, path, res.Status())
	}
	return res, nil
}

var usernameField = regexp.MustCompile(`(?i)login|user|usuario|email`)

// isUsernameField never matches hidden inputs, those are submitted untouched.
func isUsernameField(input htmlutil.Input) bool {
	return input.Name != "" &&
		input.Type != "hidden" &&
		usernameField.MatchString(input.Name)
}

func isPasswordField(input htmlutil.Input) bool {
	return input.Type == "password"
}

// findLoginForm returns the first form that has both a username and a password field.
func findLoginForm(forms []htmlutil.Form) (htmlutil.Form, htmlutil.Input, htmlutil.Input, bool) {
	for _, form := range forms {
		username, ok := form.Find(isUsernameField)
		if !ok {
			continue
		}
		password, ok := form.Find(isPasswordField)
		if !ok {
			continue
		}
		return form, username, password, true
	}
	return htmlutil.Form{}, htmlutil.Input{}, htmlutil.Input{}, false
}

// resolveAction resolves a form action against the base url, an empty action posts to the
// base url itself.
func resolveAction(base *url.URL, action string) (*url.URL, error) {
	if action == "" {
		return base, nil
	}
	ref, err := url.Parse(action)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

func (s *Session) login(ctx context.Context, creds Credentials) error {
	res, err := s.get(ctx, s.base.String())
	if err != nil {
		s.tel.ReportBroken(report_session_landing, err)
		return err
	}

	landing := finalUrl(res)
	s.tel.ReportDebug("landing page", landing)
	if domain := s.opts.badDomain(landing.String()); domain != "" {
		err = fmt.Errorf("%w: redirected to %s", ErrWrongEndpoint, landing)
		s.tel.ReportBroken(report_session_landing, err)
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		err = fmt.Errorf("%w: parse landing page: %w", ErrLoginFormNotFound, err)
		s.tel.ReportBroken(report_session_login, err)
		return err
	}

	form, username, password, ok := findLoginForm(htmlutil.ParseForms(doc))
	if !ok {
		s.tel.ReportBroken(report_session_login, ErrLoginFormNotFound, landing)
		return ErrLoginFormNotFound
	}

	action, err := resolveAction(s.base, form.Action)
	if err != nil {
		err = fmt.Errorf("%w: form action %q: %w", ErrLoginFormNotFound, form.Action, err)
		s.tel.ReportBroken(report_session_login, err)
		return err
	}

	values := map[string]string{}
	for _, hidden := range form.OfType("hidden") {
		values[hidden.Name] = hidden.Value
	}
	values[username.Name] = creds.Username
	if password.Name != "" {
		values[password.Name] = creds.Password
	}
	s.tel.ReportDebug("submitting login form", action, username.Name, password.Name)

	res, err = s.postForm(ctx, action.String(), values)
	if err != nil {
		s.tel.ReportBroken(report_session_login, err)
		return err
	}
	if !s.opts.LoginCheck(finalUrl(res), res.String()) {
		err = fmt.Errorf("%w: response to %s did not pass the login check", ErrLoginRejected, action)
		s.tel.ReportBroken(report_session_login, err)
		return err
	}

	s.tel.ReportDebug("logged in", finalUrl(res))
	return nil
}
