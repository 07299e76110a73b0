package mock

import (
	"sync"

	remotelog "github.com/tarmac-project/remotelog"
)

// Config controls construction of a Handler.
type Config struct {
	// MinLevel is the lowest level the handler accepts.
	MinLevel remotelog.Level

	// Loggable, when set, replaces the MinLevel check.
	Loggable func(rec remotelog.Record) bool
}

// Handler implements logging.Handler and records every call made to it.
type Handler struct {
	sync.Mutex
	config Config

	// Checked holds every record offered through IsLoggable.
	Checked []remotelog.Record

	// Published holds every record handed to Publish.
	Published []remotelog.Record
}

// New creates a new mock Handler.
func New(config Config) *Handler {
	return &Handler{config: config}
}

// IsLoggable records rec and reports whether the handler accepts it.
func (h *Handler) IsLoggable(rec remotelog.Record) bool {
	h.Lock()
	h.Checked = append(h.Checked, rec)
	h.Unlock()

	if h.config.Loggable != nil {
		return h.config.Loggable(rec)
	}
	return h.config.MinLevel.Enabled(rec.Level)
}

// Publish records rec.
func (h *Handler) Publish(rec remotelog.Record) {
	h.Lock()
	defer h.Unlock()
	h.Published = append(h.Published, rec)
}

// Records returns a copy of the published records.
func (h *Handler) Records() []remotelog.Record {
	h.Lock()
	defer h.Unlock()
	return append([]remotelog.Record(nil), h.Published...)
}

// Messages returns the published messages in order.
func (h *Handler) Messages() []string {
	recs := h.Records()
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Message
	}
	return out
}
