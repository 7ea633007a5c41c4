package visual

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Cookie is one entry of a serialized cookie jar, in the shape BackstopJS
// cookie files expect.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Size     int     `json:"size,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	Session  bool    `json:"session"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Browser visits a URL in a fresh browser instance and returns the cookies
// the visit left behind.
type Browser interface {
	Cookies(ctx context.Context, url string) ([]Cookie, error)
}

// RodBrowser launches a local Chrome through go-rod for each visit.
type RodBrowser struct {
	Headless bool
	// Bin overrides the browser binary; empty lets the launcher find or
	// download one.
	Bin string
}

// Cookies launches the browser, opens a page, navigates to url, reads the
// cookie jar and shuts the browser down, strictly in that order.
func (b *RodBrowser) Cookies(ctx context.Context, url string) ([]Cookie, error) {
	l := launcher.New().Headless(b.Headless)
	if b.Bin != "" {
		l = l.Bin(b.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	cookies, err := visit(browser, url)
	closeErr := browser.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close browser: %w", closeErr)
	}
	return cookies, nil
}

func visit(browser *rod.Browser, url string) ([]Cookie, error) {
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate to login url: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	raw, err := page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	return convertCookies(raw), nil
}

func convertCookies(raw []*proto.NetworkCookie) []Cookie {
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		if c == nil {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Size:     c.Size,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			Session:  c.Session,
			SameSite: string(c.SameSite),
		})
	}
	return cookies
}
