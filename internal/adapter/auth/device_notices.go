package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DeviceNotice is what the owner needs to approve a pending device login.
type DeviceNotice struct {
	Prompt          string    `json:"prompt"`
	VerificationURI string    `json:"verificationUri"`
	CompleteURI     string    `json:"verificationUriComplete,omitempty"`
	UserCode        string    `json:"userCode"`
	Expiry          time.Time `json:"expiry"`
}

// DeviceNotices holds the latest pending device login so a presentation layer
// can display it.
type DeviceNotices struct {
	mu      sync.Mutex
	current *DeviceNotice
}

// Notify records da, or forgets the current notice when da is nil. It
// satisfies DeviceNotifier.
func (n *DeviceNotices) Notify(_ context.Context, prompt string, da *oauth2.DeviceAuthResponse) {
	if da == nil {
		n.Clear()
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = &DeviceNotice{
		Prompt:          prompt,
		VerificationURI: da.VerificationURI,
		CompleteURI:     da.VerificationURIComplete,
		UserCode:        da.UserCode,
		Expiry:          da.Expiry,
	}
}

// Current returns the pending notice, if one has not expired.
func (n *DeviceNotices) Current() (DeviceNotice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return DeviceNotice{}, false
	}
	if !n.current.Expiry.IsZero() && time.Now().After(n.current.Expiry) {
		n.current = nil
		return DeviceNotice{}, false
	}
	return *n.current, true
}

// Clear forgets the pending notice.
func (n *DeviceNotices) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
}
