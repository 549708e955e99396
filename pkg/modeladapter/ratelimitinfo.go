package modeladapter

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo is the quota state a provider reported on its last
// successful response.
type RateLimitInfo struct {
	RemainingRequests int
	RemainingTokens   int
	RequestsReset     time.Time
	TokensReset       time.Time
}

// RateLimitInfoReporter exposes the last observed RateLimitInfo.
type RateLimitInfoReporter interface {
	LastRateLimitInfo() *RateLimitInfo
}

// RateLimitHeaderParser turns response headers into a RateLimitInfo, or nil
// when the response carries none. now anchors relative reset values.
type RateLimitHeaderParser func(h http.Header, now time.Time) *RateLimitInfo

// RateLimitHeaders names the headers a provider reports its quota in.
type RateLimitHeaders struct {
	RemainingRequests string
	RemainingTokens   string
	ResetRequests     string
	ResetTokens       string
}

// OpenAIHeaders is the x-ratelimit-* scheme used by OpenAI and xAI.
var OpenAIHeaders = RateLimitHeaders{
	RemainingRequests: "x-ratelimit-remaining-requests",
	RemainingTokens:   "x-ratelimit-remaining-tokens",
	ResetRequests:     "x-ratelimit-reset-requests",
	ResetTokens:       "x-ratelimit-reset-tokens",
}

// Parse reads h using the header names in s. It returns nil unless at least
// one remaining count is present.
func (s RateLimitHeaders) Parse(h http.Header, now time.Time) *RateLimitInfo {
	reqs, toks := h.Get(s.RemainingRequests), h.Get(s.RemainingTokens)
	if reqs == "" && toks == "" {
		return nil
	}

	info := &RateLimitInfo{
		RequestsReset: resetAt(h.Get(s.ResetRequests), now),
		TokensReset:   resetAt(h.Get(s.ResetTokens), now),
	}
	info.RemainingRequests, _ = strconv.Atoi(reqs)
	info.RemainingTokens, _ = strconv.Atoi(toks)

	return info
}

// ParseOpenAIRateLimitHeaders parses the OpenAIHeaders scheme.
func ParseOpenAIRateLimitHeaders(h http.Header, now time.Time) *RateLimitInfo {
	return OpenAIHeaders.Parse(h, now)
}

// resetAt accepts an RFC 3339 timestamp, a Go duration ("6s", "1m30s") or a
// number of seconds, the last two relative to now. Anything else is zero.
func resetAt(v string, now time.Time) time.Time {
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(d)
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return now.Add(time.Duration(secs * float64(time.Second)))
	}
	return time.Time{}
}
