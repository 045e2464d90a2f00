package analytics

import (
	"regexp"
	"strings"

	"github.com/joshdurbin/shortlink/internal/domain"
)

const dayFormat = "2006-01-02"

var referrerHost = regexp.MustCompile(`^(?:https?://)?(?:www\.)?([^:/\n?#]+)`)

// Aggregate summarizes a link's click events by day, referrer host and browser
func Aggregate(link *domain.ShortLink, events []*domain.ClickEvent, baseURL string) *domain.Analytics {
	result := &domain.Analytics{
		URLID:          link.ID,
		ShortCode:      link.ShortCode,
		ShortURL:       domain.ShortURL(baseURL, link.ShortCode),
		LongURL:        link.LongURL,
		TotalClicks:    link.ClickCount,
		ClicksByDay:    make(map[string]int64),
		ReferrerCounts: make(map[string]int64),
		BrowserCounts:  make(map[string]int64),
	}

	for _, event := range events {
		result.ClicksByDay[event.OccurredAt.UTC().Format(dayFormat)]++
		if event.Referrer != "" {
			result.ReferrerCounts[ReferrerDomain(event.Referrer)]++
		}
		if event.UserAgent != "" {
			result.BrowserCounts[Browser(event.UserAgent)]++
		}
	}

	return result
}

// ReferrerDomain extracts the host of a referrer, without a leading "www."
func ReferrerDomain(referrer string) string {
	if referrer == "" {
		return "Direct"
	}
	m := referrerHost.FindStringSubmatch(referrer)
	if m == nil {
		return "Unknown"
	}
	return strings.ToLower(m[1])
}

// Browser maps a user agent to a coarse browser family
func Browser(userAgent string) string {
	switch {
	case userAgent == "":
		return "Unknown"
	case strings.Contains(userAgent, "Edg"):
		return "Edge"
	case strings.Contains(userAgent, "Chrome") && !strings.Contains(userAgent, "Chromium"):
		return "Chrome"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox"
	case strings.Contains(userAgent, "Safari") && !strings.Contains(userAgent, "Chrome"):
		return "Safari"
	case strings.Contains(userAgent, "MSIE") || strings.Contains(userAgent, "Trident"):
		return "Internet Explorer"
	default:
		return "Other"
	}
}
