// Package attribution captures campaign (UTM) parameters from the landing
// URL and keeps them for the lifetime of a browsing session, so every
// analytics event and operator notification can be tied back to the campaign
// that brought the visitor in.
package attribution

import (
	"context"
	"net/url"
	"time"
)

// Record is the campaign attribution captured on first landing. It is
// written once per session and read-only afterwards.
type Record struct {
	Source      string    `json:"utm_source,omitempty"`
	Medium      string    `json:"utm_medium,omitempty"`
	Campaign    string    `json:"utm_campaign,omitempty"`
	Term        string    `json:"utm_term,omitempty"`
	Content     string    `json:"utm_content,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
	LandingPage string    `json:"landing_page,omitempty"`
	CapturedAt  time.Time `json:"captured_at,omitempty"`
}

// IsZero reports whether no campaign parameter was captured.
func (r Record) IsZero() bool {
	return r.Source == "" && r.Medium == "" && r.Campaign == "" &&
		r.Term == "" && r.Content == ""
}

// Fields returns the record as event payload fields, omitting empty values.
func (r Record) Fields() map[string]string {
	fields := make(map[string]string, 7)
	put := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	put("utm_source", r.Source)
	put("utm_medium", r.Medium)
	put("utm_campaign", r.Campaign)
	put("utm_term", r.Term)
	put("utm_content", r.Content)
	put("referrer", r.Referrer)
	put("landing_page", r.LandingPage)
	return fields
}

// Store persists one attribution record per session.
type Store interface {
	Put(ctx context.Context, sessionID string, rec Record) error
	Get(ctx context.Context, sessionID string) (Record, error)
}

// Capturer extracts and stores attribution for funnel sessions.
type Capturer struct {
	store Store
	now   func() time.Time
}

// NewCapturer creates a Capturer backed by the given store.
func NewCapturer(store Store) *Capturer {
	return &Capturer{store: store, now: time.Now}
}

// Parse extracts a Record from a landing URL and referrer string. The zero
// Record is returned when the URL carries no recognized utm_* parameter.
func Parse(landingURL, referrer string, now time.Time) Record {
	u, err := url.Parse(landingURL)
	if err != nil {
		return Record{}
	}
	q := u.Query()
	rec := Record{
		Source:   q.Get("utm_source"),
		Medium:   q.Get("utm_medium"),
		Campaign: q.Get("utm_campaign"),
		Term:     q.Get("utm_term"),
		Content:  q.Get("utm_content"),
	}
	if rec.IsZero() {
		return Record{}
	}
	rec.Referrer = referrer
	rec.LandingPage = u.Path
	rec.CapturedAt = now
	return rec
}

// Capture parses the landing URL and, when at least one campaign parameter
// is present, stores the record for the session, overwriting any prior one.
// With no campaign parameter it is a no-op and any stored record survives.
func (c *Capturer) Capture(ctx context.Context, sessionID, landingURL, referrer string) (Record, error) {
	rec := Parse(landingURL, referrer, c.now())
	if rec.IsZero() {
		return Record{}, nil
	}
	if err := c.store.Put(ctx, sessionID, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Read returns the stored record for the session, or the zero Record when
// nothing was captured or the store is unreachable. It never fails the
// caller: attribution is best-effort enrichment, not a dependency.
func (c *Capturer) Read(ctx context.Context, sessionID string) Record {
	rec, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return Record{}
	}
	return rec
}
