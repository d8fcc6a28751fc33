package upstream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

// SessionState describes where the authenticated connection currently is in
// its lifecycle. There is exactly one session per process.
type SessionState int

const (
	StateLoggedOut SessionState = iota
	StateLoggingIn
	StateActive
	StateExpired
)

func (s SessionState) String() string {
	switch s {
	case StateLoggingIn:
		return "logging_in"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "logged_out"
	}
}

const (
	loginPagePath   = "/logins.asp"
	loginSubmitPath = "/login0.asp"

	// loginFormMarker must appear on the login page; its absence means the
	// upstream changed shape and submitting credentials would be pointless.
	loginFormMarker = "LoginForm"
	// loginSuccessMarker appears in the response body after a successful
	// login. The configured username must appear alongside it.
	loginSuccessMarker = "登入成功"
)

// Session owns the single authenticated connection to the enrollment system.
// The cookie jar on the shared HTTP client carries the upstream session
// cookie; the struct tracks state and age so that fetches never go out on a
// stale login. Expiry is lazy: it is only noticed when EnsureActive runs.
type Session struct {
	client      *http.Client
	baseURL     string
	username    string
	password    string
	ttl         time.Duration
	maxRetries  int
	backoffBase time.Duration
	now         func() time.Time

	mu            sync.Mutex
	state         SessionState
	establishedAt time.Time
}

// SessionOptions configures NewSession. Zero values fall back to the
// defaults used in production.
type SessionOptions struct {
	BaseURL     string
	Username    string
	Password    string
	TTL         time.Duration // default 30m
	MaxRetries  int           // default 3
	BackoffBase time.Duration // default 1s, doubles per attempt
	Timeout     time.Duration // per-request timeout, default 30s
}

// NewSession builds a Session with its own cookie-jar HTTP client.
func NewSession(opts SessionOptions) *Session {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &Session{
		client: &http.Client{
			Jar:     jar,
			Timeout: opts.Timeout,
		},
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		username:    opts.Username,
		password:    opts.Password,
		ttl:         opts.TTL,
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		now:         time.Now,
		state:       StateLoggedOut,
	}
}

// Client returns the HTTP client carrying the session cookies. The fetcher
// reuses it so listing requests ride on the authenticated session.
func (s *Session) Client() *http.Client { return s.client }

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EstablishedAt reports when the current login was established. Zero when
// there has never been a successful login.
func (s *Session) EstablishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.establishedAt
}

// EnsureActive makes sure there is a live login before a fetch goes out.
// When the session is Active and younger than the TTL it is a no-op.
// Otherwise it logs in with up to maxRetries attempts and exponential
// backoff between them. Transient transport failures are retried; an
// explicit rejection by the upstream fails immediately as ErrLogin.
// The mutex guarantees two callers never race a double login.
func (s *Session) EnsureActive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateActive {
		if s.now().Sub(s.establishedAt) < s.ttl {
			return nil
		}
		log.Printf("session: login older than %s, re-authenticating", s.ttl)
		s.state = StateExpired
	}
	return s.loginLocked(ctx)
}

// loginLocked runs the login attempts. Caller must hold s.mu. On exhausting
// retries the state is left Expired/LoggedOut so the next call tries again;
// there is no permanent lockout.
func (s *Session) loginLocked(ctx context.Context) error {
	s.state = StateLoggingIn

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.attemptLogin(ctx)
		if err == nil {
			s.state = StateActive
			s.establishedAt = s.now()
			log.Printf("session: login succeeded")
			return nil
		}
		if isRejection(err) {
			s.state = StateLoggedOut
			return err
		}
		lastErr = err
		log.Printf("session: login attempt %d/%d failed: %v", attempt+1, s.maxRetries, err)
		if attempt < s.maxRetries-1 {
			select {
			case <-time.After(s.backoffBase << attempt):
			case <-ctx.Done():
				s.state = StateExpired
				return fmt.Errorf("login aborted: %w", ctx.Err())
			}
		}
	}
	s.state = StateExpired
	return fmt.Errorf("login failed after %d attempts: %w (%v)", s.maxRetries, ErrNetwork, lastErr)
}

// attemptLogin performs a single login round trip: fetch the login page,
// check it still carries the expected form, submit credentials and inspect
// the result for the success marker bound to the configured username.
func (s *Session) attemptLogin(ctx context.Context) error {
	page, err := s.get(ctx, s.baseURL+loginPagePath)
	if err != nil {
		return err
	}
	if !strings.Contains(page, loginFormMarker) {
		return fmt.Errorf("login page missing %s form: %w", loginFormMarker, ErrLogin)
	}

	form := url.Values{
		"id":     {s.username},
		"passwd": {s.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+loginSubmitPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit login: %w: %v", ErrNetwork, err)
	}
	body, err := readDecoded(resp)
	if err != nil {
		return err
	}

	if strings.Contains(body, loginSuccessMarker) && strings.Contains(body, s.username) {
		return nil
	}
	return fmt.Errorf("credentials rejected: %w", ErrLogin)
}

func (s *Session) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w: %v", rawURL, ErrNetwork, err)
	}
	return readDecoded(resp)
}

func isRejection(err error) bool {
	// Anything that is not an explicit rejection is treated as transient.
	return errors.Is(err, ErrLogin)
}
