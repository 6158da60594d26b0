package portal

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/external/browser"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

// Session is a logged-in portal tab.
type Session interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
	Close() error
}

type SessionProvider interface {
	Open(ctx context.Context) (Session, error)
}

type Credentials struct {
	Username string
	Password string
}

// Field selectors are tried in order; the first one present on the login
// page is used.
var (
	DefaultUserSelectors = []string{
		`input[name="username"]`,
		`input[name="user"]`,
		`input[name="account"]`,
		`input[id*="user" i]`,
		`input[type="email"]`,
		`input[type="text"]`,
	}
	DefaultPasswordSelectors = []string{
		`input[name="password"]`,
		`input[id*="pass" i]`,
		`input[type="password"]`,
	}
	DefaultSubmitSelectors = []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
		`button[id*="login" i]`,
		`button`,
	}
)

var ErrLoginFieldNotFound = crerr.New("login field not found")

type LoginConfig struct {
	LoginURL          string
	Credentials       Credentials
	SettleDelay       time.Duration
	UserSelectors     []string
	PasswordSelectors []string
	SubmitSelectors   []string
	Logger            *logging.Logger
}

// BrowserSessions logs into the portal in a dedicated browser tab.
type BrowserSessions struct {
	browser *browser.Browser
	cfg     LoginConfig
	logger  *logging.Logger
}

func NewBrowserSessions(b *browser.Browser, cfg LoginConfig) *BrowserSessions {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 5 * time.Second
	}
	if len(cfg.UserSelectors) == 0 {
		cfg.UserSelectors = DefaultUserSelectors
	}
	if len(cfg.PasswordSelectors) == 0 {
		cfg.PasswordSelectors = DefaultPasswordSelectors
	}
	if len(cfg.SubmitSelectors) == 0 {
		cfg.SubmitSelectors = DefaultSubmitSelectors
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &BrowserSessions{browser: b, cfg: cfg, logger: logger}
}

func (p *BrowserSessions) Open(ctx context.Context) (Session, error) {
	if strings.TrimSpace(p.cfg.LoginURL) == "" {
		return nil, crerr.New("portal login url is not configured")
	}

	page, release, err := p.browser.OpenTab(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.login(page); err != nil {
		release()
		return nil, crerr.Wrap(err, "portal login")
	}
	p.logger.InfoContext(ctx, "portal session opened", "login_url", p.cfg.LoginURL)
	return &browserSession{page: page, release: release}, nil
}

// login fills the first matching user and password fields, submits and waits
// for the settle delay. The outcome is not verified here; a failed login
// shows up as a page without the history table.
func (p *BrowserSessions) login(page context.Context) error {
	if err := chromedp.Run(page,
		chromedp.Navigate(p.cfg.LoginURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return crerr.Wrap(err, "open login page")
	}

	exists := func(selector string) bool {
		found, err := browser.Exists(page, selector)
		return err == nil && found
	}

	userSel, ok := pickSelector(p.cfg.UserSelectors, exists)
	if !ok {
		return crerr.Wrap(ErrLoginFieldNotFound, "username")
	}
	passSel, ok := pickSelector(p.cfg.PasswordSelectors, exists)
	if !ok {
		return crerr.Wrap(ErrLoginFieldNotFound, "password")
	}

	actions := []chromedp.Action{
		chromedp.SendKeys(userSel, p.cfg.Credentials.Username, chromedp.ByQuery),
		chromedp.SendKeys(passSel, p.cfg.Credentials.Password, chromedp.ByQuery),
	}
	if submitSel, ok := pickSelector(p.cfg.SubmitSelectors, exists); ok {
		actions = append(actions, chromedp.Click(submitSel, chromedp.ByQuery))
	} else {
		actions = append(actions, chromedp.Submit(passSel, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.Sleep(p.cfg.SettleDelay))

	return chromedp.Run(page, actions...)
}

func pickSelector(candidates []string, exists func(string) bool) (string, bool) {
	for _, candidate := range candidates {
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

type browserSession struct {
	page    context.Context
	release func()
}

func (s *browserSession) Fetch(_ context.Context, pageURL string) (string, error) {
	var html string
	if err := chromedp.Run(s.page,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", crerr.Wrapf(err, "portal fetch %s", pageURL)
	}
	return html, nil
}

func (s *browserSession) Close() error {
	s.release()
	return nil
}
