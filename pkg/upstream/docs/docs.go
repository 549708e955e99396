// Package docs searches a fixed index of Stacks documentation pages and
// extracts readable text from them.
package docs

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/blasko/pkg/upstream/rest"
)

//go:embed index.yaml
var defaultIndex []byte

// ErrDisallowed is returned when robots.txt forbids fetching a page.
var ErrDisallowed = errors.New("docs: disallowed by robots.txt")

const (
	maxMainText = 5000
	maxBodyText = 3000
)

// Page is one entry of the documentation index.
type Page struct {
	URL         string `yaml:"url" json:"url"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ScoredPage is a search hit.
type ScoredPage struct {
	Page
	Score int `json:"score"`
}

// Index is an in-memory list of documentation pages.
type Index struct {
	pages []Page
}

// NewIndex creates an Index over pages.
func NewIndex(pages []Page) *Index {
	return &Index{pages: pages}
}

// DefaultIndex returns the built-in Stacks documentation index.
func DefaultIndex() (*Index, error) {
	var pages []Page
	if err := yaml.Unmarshal(defaultIndex, &pages); err != nil {
		return nil, fmt.Errorf("docs: index: %w", err)
	}
	return NewIndex(pages), nil
}

// Len returns the number of indexed pages.
func (ix *Index) Len() int { return len(ix.pages) }

// Search scores every page against question and returns up to limit pages
// with a positive score, best first. The whole question matching a title
// or description weighs most, then individual words longer than two
// characters found in the title, description or URL.
func (ix *Index) Search(question string, limit int) []ScoredPage {
	q := strings.ToLower(question)

	var keywords []string
	for _, w := range strings.Fields(q) {
		if utf8.RuneCountInString(w) > 2 {
			keywords = append(keywords, w)
		}
	}

	var hits []ScoredPage
	for _, p := range ix.pages {
		title := strings.ToLower(p.Title)
		desc := strings.ToLower(p.Description)
		u := strings.ToLower(p.URL)

		score := 0
		if strings.Contains(title, q) {
			score += 100
		}
		if desc != "" && strings.Contains(desc, q) {
			score += 50
		}
		for _, k := range keywords {
			if strings.Contains(title, k) {
				score += 10
			}
			if strings.Contains(desc, k) {
				score += 5
			}
			if strings.Contains(u, k) {
				score += 3
			}
		}

		if score > 0 {
			hits = append(hits, ScoredPage{Page: p, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Fetcher downloads documentation pages and extracts their main text. It
// honours robots.txt per host, caching the parsed rules.
type Fetcher struct {
	rest  *rest.Client
	agent string

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// NewFetcher creates a Fetcher. agent is the robots.txt user agent token.
func NewFetcher(rc *rest.Client, agent string) *Fetcher {
	return &Fetcher{
		rest:   rc,
		agent:  agent,
		robots: make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch returns the readable text of pageURL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("docs: invalid url: %w", err)
	}

	if !f.allowed(ctx, u) {
		return "", ErrDisallowed
	}

	body, err := f.rest.Get(ctx, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("docs: fetch %s: %w", pageURL, err)
	}

	return ExtractText(body)
}

func (f *Fetcher) allowed(ctx context.Context, u *url.URL) bool {
	f.mu.Lock()
	rules, ok := f.robots[u.Host]
	f.mu.Unlock()

	if !ok {
		rules = f.loadRobots(ctx, u)

		f.mu.Lock()
		f.robots[u.Host] = rules
		f.mu.Unlock()
	}

	if rules == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return rules.TestAgent(path, f.agent)
}

// loadRobots returns nil when robots.txt is missing or unreadable, which
// allows everything.
func (f *Fetcher) loadRobots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	body, err := f.rest.Get(ctx, u.Scheme+"://"+u.Host+"/robots.txt", nil)
	if err != nil {
		return nil
	}

	rules, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return rules
}

// ExtractText strips navigation and scripts from an HTML document and
// returns the whitespace-collapsed text of its main content, or of the
// body when no main element exists.
func ExtractText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("docs: parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header, .sidebar, .navigation").Remove()

	if main := doc.Find("main, article, .content, .markdown-body").First(); main.Length() > 0 {
		return truncate(collapse(main.Text()), maxMainText), nil
	}

	return truncate(collapse(doc.Find("body").Text()), maxBodyText), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
