package loader

import (
	"sync/atomic"
	"weak"
)

// HostClient is notified about loader transitions on the run loop.
type HostClient interface {
	// LoaderDidTransition is called once, when the loader reaches Complete.
	LoaderDidTransition(reason TransitionReason)
}

// HostLink connects a loader to its owning host without keeping the host
// alive. The host holds the link; the loader only holds a weak pointer to it,
// so dropping the link (or calling Detach) silences the loader.
type HostLink struct {
	client   HostClient
	detached atomic.Bool
}

// NewHostLink wraps client in a link the host must keep reachable.
func NewHostLink(client HostClient) *HostLink {
	return &HostLink{client: client}
}

// Detach stops all further notifications.
func (h *HostLink) Detach() {
	h.detached.Store(true)
}

// SetHost attaches the loader to link. Call on the run loop.
func (l *Loader) SetHost(link *HostLink) {
	if link == nil {
		l.host = weak.Pointer[HostLink]{}
		return
	}
	l.host = weak.Make(link)
}

// hostClient returns the live host client, or nil when the host is gone.
func (l *Loader) hostClient() HostClient {
	link := l.host.Value()
	if link == nil || link.detached.Load() {
		return nil
	}
	return link.client
}

func (l *Loader) notifyHost(reason TransitionReason) {
	if c := l.hostClient(); c != nil {
		c.LoaderDidTransition(reason)
	}
}
