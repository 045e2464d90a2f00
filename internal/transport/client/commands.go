package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
	out    io.Writer
}

// NewCommands creates a new Commands instance printing to out
func NewCommands(client *Client, out io.Writer) *Commands {
	return &Commands{
		client: client,
		out:    out,
	}
}

// Shorten creates a short URL and displays the result
func (c *Commands) Shorten(ctx context.Context, longURL string) error {
	result, err := c.client.Shorten(ctx, longURL)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Short URL created:\n")
	fmt.Fprintf(c.out, "Short Code: %s\n", result.ShortCode)
	fmt.Fprintf(c.out, "Short URL: %s\n", result.ShortURL)
	fmt.Fprintf(c.out, "Long URL: %s\n", result.LongURL)
	fmt.Fprintf(c.out, "Created At: %s\n", result.CreatedAt.Format(time.RFC3339))

	return nil
}

// Get retrieves and displays information about a short URL
func (c *Commands) Get(ctx context.Context, shortCode string) error {
	link, err := c.client.GetURL(ctx, shortCode)
	if errors.Is(err, ErrNotFound) {
		fmt.Fprintf(c.out, "Short code '%s' not found\n", shortCode)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "URL Information:\n")
	fmt.Fprintf(c.out, "Short Code: %s\n", link.ShortCode)
	fmt.Fprintf(c.out, "Short URL: %s\n", link.ShortURL)
	fmt.Fprintf(c.out, "Long URL: %s\n", link.LongURL)
	fmt.Fprintf(c.out, "Created At: %s\n", link.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(c.out, "Clicks: %d\n", link.Clicks)

	return nil
}

// Delete removes a short URL
func (c *Commands) Delete(ctx context.Context, shortCode string) error {
	err := c.client.DeleteURL(ctx, shortCode)
	if errors.Is(err, ErrNotFound) {
		fmt.Fprintf(c.out, "Short code '%s' not found\n", shortCode)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Short URL '%s' deleted successfully\n", shortCode)
	return nil
}

// List displays the caller's short URLs in a table format
func (c *Commands) List(ctx context.Context) error {
	links, err := c.client.ListURLs(ctx)
	if err != nil {
		return err
	}

	if len(links) == 0 {
		fmt.Fprintln(c.out, "No URLs found")
		return nil
	}

	fmt.Fprintf(c.out, "%-15s %-50s %-20s %s\n", "Short Code", "Long URL", "Created At", "Clicks")
	fmt.Fprintln(c.out, strings.Repeat("-", 95))

	for _, link := range links {
		fmt.Fprintf(c.out, "%-15s %-50s %-20s %d\n",
			link.ShortCode,
			truncate(link.LongURL, 50),
			link.CreatedAt.Format("2006-01-02 15:04:05"),
			link.Clicks,
		)
	}

	return nil
}

// Analytics displays the click breakdown of a short URL
func (c *Commands) Analytics(ctx context.Context, shortCode string) error {
	stats, err := c.client.Analytics(ctx, shortCode)
	if errors.Is(err, ErrNotFound) {
		fmt.Fprintf(c.out, "Short code '%s' not found\n", shortCode)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Analytics for %s (%s)\n", stats.ShortURL, stats.LongURL)
	fmt.Fprintf(c.out, "Total Clicks: %d\n", stats.TotalClicks)
	c.printCounts("Clicks by Day", stats.ClicksByDay, true)
	c.printCounts("Referrers", stats.ReferrerCounts, false)
	c.printCounts("Browsers", stats.BrowserCounts, false)

	return nil
}

// Logout revokes the current token
func (c *Commands) Logout(ctx context.Context) error {
	if err := c.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Logged out")
	return nil
}

// printCounts prints a count map ordered by key, or by descending count
func (c *Commands) printCounts(title string, counts map[string]int64, byKey bool) {
	if len(counts) == 0 {
		return
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if byKey || counts[keys[i]] == counts[keys[j]] {
			return keys[i] < keys[j]
		}
		return counts[keys[i]] > counts[keys[j]]
	})

	fmt.Fprintf(c.out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(c.out, "  %-30s %d\n", k, counts[k])
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
