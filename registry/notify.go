package registry

import (
	"log/slog"

	"github.com/codethor0/DecentraFile/fingerprint"
)

// Event names emitted on registry state changes and access decisions.
const (
	EventRegistered   = "Registered"
	EventRetrieved    = "Retrieved"
	EventAccessDenied = "AccessDenied"
)

// Notifier receives registry events. Implementations must not block for
// long; the registry calls them synchronously.
type Notifier interface {
	Notify(event string, fp fingerprint.Fingerprint, owner string)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(string, fingerprint.Fingerprint, string) {}

// SlogNotifier logs events with masked identifiers. Fingerprints are reduced
// to an 8-hex prefix and owners to their algorithm tag plus a short prefix;
// blob contents and keys are never logged.
type SlogNotifier struct {
	Log *slog.Logger
}

func NewSlogNotifier(log *slog.Logger) *SlogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &SlogNotifier{Log: log}
}

func (n *SlogNotifier) Notify(event string, fp fingerprint.Fingerprint, owner string) {
	n.Log.Info("registry event",
		"event", event,
		"fingerprint", fp.Masked(),
		"owner", maskOwner(owner),
	)
}

func maskOwner(owner string) string {
	const visible = 16
	if len(owner) <= visible {
		return owner
	}
	return owner[:visible] + "..."
}
