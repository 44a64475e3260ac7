package domain

import "time"

// ParsedEntry is one line of user input after cleaning and classification.
type ParsedEntry struct {
	Nickname string   `json:"nickname"`
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
}

// Credentials carries whatever secrets an adapter needs. Unused fields stay empty.
type Credentials struct {
	APIKey   string
	ClientID string
	Token    string
}

// StatusRecord is the uniform result of one adapter check.
type StatusRecord struct {
	Platform   Platform     `json:"platform"`
	Identifier string       `json:"identifier"`
	Name       string       `json:"name"`
	Status     StreamStatus `json:"status"`
	Title      string       `json:"title,omitempty"`
	Viewers    *int64       `json:"viewers,omitempty"`
	Details    string       `json:"details,omitempty"`
}

// Normalized fills Details for failure statuses that arrived without one.
func (r StatusRecord) Normalized() StatusRecord {
	if !r.Status.IsValid() || r.Status == StreamStatusPending {
		r.Status = StreamStatusError
	}
	if !r.Status.IsSuccess() && r.Details == "" {
		r.Details = r.Status.Label()
	}
	return r
}

// Viewers returns a pointer suitable for StatusRecord.Viewers.
func Viewers(n int64) *int64 {
	return &n
}

// MonitoredEntry is the long-lived row the dispatcher owns for one parsed line.
type MonitoredEntry struct {
	Platform      Platform     `json:"platform"`
	Identifier    string       `json:"identifier"`
	Name          string       `json:"name"`
	Nickname      string       `json:"nickname"`
	OriginalInput string       `json:"originalInput"`
	Status        StreamStatus `json:"status"`
	LastCheck     *time.Time   `json:"lastCheck,omitempty"`
	Title         string       `json:"title,omitempty"`
	Viewers       *int64       `json:"viewers,omitempty"`
	Details       string       `json:"details,omitempty"`
}

func NewMonitoredEntry(p ParsedEntry) *MonitoredEntry {
	return &MonitoredEntry{
		Platform:      p.Platform,
		Identifier:    p.URL,
		Name:          p.URL,
		Nickname:      p.Nickname,
		OriginalInput: p.URL,
		Status:        StreamStatusPending,
	}
}

// Apply overwrites the entry with a check result. The identifier is only replaced by
// a successful result, so a refined identifier never reverts to a rawer form.
func (e *MonitoredEntry) Apply(rec StatusRecord, at time.Time) {
	if e == nil {
		return
	}
	rec = rec.Normalized()
	e.Status = rec.Status
	e.Title = rec.Title
	e.Viewers = rec.Viewers
	e.Details = rec.Details
	if rec.Name != "" {
		e.Name = rec.Name
	}
	if rec.Status.IsSuccess() && rec.Identifier != "" {
		e.Identifier = rec.Identifier
	}
	checked := at
	e.LastCheck = &checked
}

func (e *MonitoredEntry) IsLive() bool {
	if e == nil {
		return false
	}
	return e.Status == StreamStatusLive
}

// Clone returns a deep copy safe to hand to readers outside the dispatcher.
func (e *MonitoredEntry) Clone() MonitoredEntry {
	c := *e
	if e.Viewers != nil {
		v := *e.Viewers
		c.Viewers = &v
	}
	if e.LastCheck != nil {
		t := *e.LastCheck
		c.LastCheck = &t
	}
	return c
}

// QuotaState is the persisted YouTube unit counter for one quota day.
type QuotaState struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}
