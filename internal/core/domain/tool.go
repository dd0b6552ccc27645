package domain

import "time"

// ToolItem is one content item returned by a tool provider.
type ToolItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Body        string    `json:"body,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// ToolInfo describes a tool advertised by a worker.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ToolServerStatus is the observable state of a supervised worker.
type ToolServerStatus struct {
	Name       string
	Ready      bool
	PID        int
	StartedAt  time.Time
	Err        error
	RSSBytes   uint64
	CPUPercent float64
}
