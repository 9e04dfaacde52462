package reviewaccess

import (
	"fmt"

	"docflow/internal/ipc"
	"docflow/internal/store"
)

// Session represents a review access handle and its cleanup function.
type Session struct {
	Access Access
	// Daemon reports whether the session talks to a running daemon.
	Daemon bool
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries IPC-backed access first, then falls back to direct store access.
func OpenWithFallback(
	dial func() (*ipc.Client, error),
	openStore func() (*store.Store, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{
				Access: NewIPCAccess(client),
				Daemon: true,
				close:  client.Close,
			}, nil
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open import store: no store opener configured")
	}
	st, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open import store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(st),
		close:  st.Close,
	}, nil
}
