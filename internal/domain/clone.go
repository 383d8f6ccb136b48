package domain

import (
	"maps"
	"slices"
	"time"
)

// Clone helpers return deep copies so callers never alias stored state.

func (e *Environment) Clone() *Environment {
	c := *e
	return &c
}

func (k *APIKey) Clone() *APIKey {
	c := *k
	c.Permissions = slices.Clone(k.Permissions)
	c.ExpiresAt = cloneTime(k.ExpiresAt)
	c.LastUsedAt = cloneTime(k.LastUsedAt)
	if k.RateLimit != nil {
		v := *k.RateLimit
		c.RateLimit = &v
	}
	return &c
}

func (w *Webhook) Clone() *Webhook {
	c := *w
	c.Events = slices.Clone(w.Events)
	c.LastTriggeredAt = cloneTime(w.LastTriggeredAt)
	return &c
}

func (l *LogEntry) Clone() *LogEntry {
	c := *l
	c.Details = maps.Clone(l.Details)
	c.StatusCode = cloneInt(l.StatusCode)
	c.LatencyMS = cloneInt(l.LatencyMS)
	return &c
}

func (a *AlertRule) Clone() *AlertRule {
	c := *a
	c.Channels = slices.Clone(a.Channels)
	c.Recipients = slices.Clone(a.Recipients)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
