package visual

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/exec"
	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/sirupsen/logrus"
)

// SessionProvisioner persists an authenticated session for the run's user.
type SessionProvisioner interface {
	WriteCookies(ctx context.Context) error
}

// Provisioner logs in through a one-time login URL and stores the resulting
// cookies where the scenarios expect them.
type Provisioner struct {
	exec         exec.CommandExecutor
	browser      Browser
	cookiesDir   string
	user         string
	baseURL      string
	loginCommand string
	log          *logrus.Entry
}

// NewProvisioner creates a provisioner for the configured user.
func NewProvisioner(cfg *config.Config, executor exec.CommandExecutor, browser Browser) *Provisioner {
	return &Provisioner{
		exec:         executor,
		browser:      browser,
		cookiesDir:   cfg.Backstop.CookiesDir(),
		user:         cfg.VisualRegression.User,
		baseURL:      cfg.URL,
		loginCommand: cfg.Backstop.LoginCommand,
		log:          grovelogging.NewLogger("grove-assets.session"),
	}
}

// CookieFilePath is the cookie file for the provisioner's user.
func (p *Provisioner) CookieFilePath() string {
	return filepath.Join(p.cookiesDir, p.user+CookieFileExt)
}

// LoginURL runs the login command and returns its trimmed output.
func (p *Provisioner) LoginURL() (string, error) {
	command := strings.NewReplacer("{user}", p.user, "{url}", p.baseURL).Replace(p.loginCommand)
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("no login command configured for user %s", p.user)
	}

	out, err := p.exec.Output("sh", "-c", command)
	if err != nil {
		return "", fmt.Errorf("login command failed: %w", err)
	}
	loginURL := strings.TrimSpace(out)
	if loginURL == "" {
		return "", fmt.Errorf("login command produced no URL: %s", command)
	}
	return loginURL, nil
}

// WriteCookies obtains a fresh session for the user and replaces the user's
// cookie file with it.
func (p *Provisioner) WriteCookies(ctx context.Context) error {
	loginURL, err := p.LoginURL()
	if err != nil {
		return err
	}

	p.log.WithField("user", p.user).Debug("Harvesting session cookies")
	cookies, err := p.browser.Cookies(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("harvest cookies: %w", err)
	}

	if err := os.MkdirAll(p.cookiesDir, 0o755); err != nil {
		return fmt.Errorf("create cookies directory: %w", err)
	}

	path := p.CookieFilePath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old cookie file: %w", err)
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"user":    p.user,
		"cookies": len(cookies),
		"path":    path,
	}).Info("Wrote session cookies")
	return nil
}
