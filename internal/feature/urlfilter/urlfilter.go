// Package urlfilter warns, and optionally times out, users posting links.
package urlfilter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/feature"
	"github.com/soyeahso/twitchbot/internal/logging"
)

// DefaultWarning is sent when no warning is configured.
const DefaultWarning = "{user}, please don't post links here."

// linkPattern matches URLs with or without a scheme. Matches without a
// scheme or "www." are only links when linkTLDs knows their TLD.
var linkPattern = regexp.MustCompile(`(?i)\b(?:https?://)?(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}(?::\d+)?(?:/[^\s]*)?`)

// linkTLDs are the TLDs recognized on bare hosts like "bit.ly/x". TLDs that
// are also common words, such as .is, .it or .next, are left out.
var linkTLDs = map[string]bool{
	"com": true, "net": true, "org": true, "info": true, "biz": true,
	"io": true, "co": true, "me": true, "tv": true, "gg": true,
	"ly": true, "gl": true, "be": true, "to": true, "cc": true,
	"xyz": true, "ru": true, "uk": true, "de": true, "fr": true,
	"nl": true, "pl": true, "br": true, "us": true, "ca": true,
	"eu": true, "cn": true, "jp": true, "kr": true, "site": true,
	"online": true, "shop": true, "store": true, "app": true, "dev": true,
	"ws": true, "su": true, "tk": true, "ml": true, "ga": true,
}

// Feature inspects every message. The broadcaster, moderators and
// subscribers may post links.
type Feature struct {
	allowed []string
	warning string
	timeout int
	log     *logging.Logger
	respond domain.ResponseFunc
}

// New creates a filter. timeout is in seconds; zero only warns.
func New(allowed []string, warning string, timeout int, log *logging.Logger) *Feature {
	if warning == "" {
		warning = DefaultWarning
	}
	norm := make([]string, 0, len(allowed))
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "*."))
		if d != "" {
			norm = append(norm, d)
		}
	}
	return &Feature{allowed: norm, warning: warning, timeout: timeout, log: log}
}

func (f *Feature) Trigger() string { return "" }

func (f *Feature) Setup(respond domain.ResponseFunc) { f.respond = respond }

func (f *Feature) Act(msg domain.Message) {
	if feature.Privileged(msg) || msg.Tags.IsSubscriber() {
		return
	}
	link, ok := f.firstForbidden(msg.Text)
	if !ok {
		return
	}

	f.log.Info().Str("user", msg.From).Str("channel", msg.Channel).Str("link", link).Msg("link removed")
	if f.timeout > 0 {
		f.respond(nil, domain.Reply(msg, fmt.Sprintf("/timeout %s %d", msg.From, f.timeout)))
	}
	f.respond(nil, domain.Reply(msg, strings.ReplaceAll(f.warning, "{user}", feature.DisplayName(msg))))
}

// firstForbidden returns the first link whose host is not allowed.
func (f *Feature) firstForbidden(text string) (string, bool) {
	for _, link := range linkPattern.FindAllString(text, -1) {
		host := hostOf(link)
		if !isLink(link, host) {
			continue
		}
		if !f.allowedHost(host) {
			return link, true
		}
	}
	return "", false
}

func (f *Feature) allowedHost(host string) bool {
	for _, d := range f.allowed {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// isLink rejects prose like "end of sentence.next" that only looks like a
// bare host.
func isLink(match, host string) bool {
	if host == "" {
		return false
	}
	lower := strings.ToLower(match)
	if strings.Contains(lower, "://") || strings.HasPrefix(lower, "www.") {
		return true
	}
	return linkTLDs[host[strings.LastIndexByte(host, '.')+1:]]
}

func hostOf(link string) string {
	if !strings.Contains(link, "://") {
		link = "http://" + link
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Factory builds the filter when configured.
func Factory(d feature.Deps) ([]domain.Feature, error) {
	c := d.Config.URLFilter
	if c == nil {
		return nil, nil
	}
	return []domain.Feature{New(c.AllowedDomains, c.Warning, c.TimeoutSeconds, d.Log)}, nil
}
