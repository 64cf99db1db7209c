package auth

import (
	"crypto/subtle"
	"sync"

	"stanza/internal/config"
	"stanza/internal/models"
)

// VirtualAdminRegistry holds operator identities defined by
// configuration rather than user rows. Their poem-interaction state
// lives in process memory for the lifetime of the server and is shared
// across concurrent requests, so every access goes through the mutex.
type VirtualAdminRegistry struct {
	mu     sync.Mutex
	creds  map[string]string
	states map[string]*virtualState
}

type virtualState struct {
	readPoems   []string
	pinnedTitle *string
}

func NewVirtualAdminRegistry(admins []config.AdminCredential) *VirtualAdminRegistry {
	creds := make(map[string]string, len(admins))
	for _, admin := range admins {
		creds[admin.Username] = admin.Password
	}
	return &VirtualAdminRegistry{
		creds:  creds,
		states: make(map[string]*virtualState),
	}
}

func (r *VirtualAdminRegistry) IsVirtualAdmin(username string) bool {
	_, ok := r.creds[username]
	return ok
}

// CheckCredentials compares against the configured operator list. The
// list is trusted configuration, not user input, so passwords are
// stored plain; the comparison is still constant time.
func (r *VirtualAdminRegistry) CheckCredentials(username, password string) bool {
	expected, ok := r.creds[username]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(password)) == 1
}

// Snapshot returns the live identity for a virtual admin, lazily
// initializing empty interaction state on first access.
func (r *VirtualAdminRegistry) Snapshot(username string) *models.Identity {
	if !r.IsVirtualAdmin(username) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(username)
	readPoems := make([]string, len(state.readPoems))
	copy(readPoems, state.readPoems)

	return &models.Identity{
		Username:    username,
		IsAdmin:     true,
		Virtual:     true,
		ReadPoems:   readPoems,
		PinnedTitle: state.pinnedTitle,
	}
}

func (r *VirtualAdminRegistry) ToggleRead(username, title string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(username)
	action, readPoems := models.ToggleRead(state.readPoems, title)
	state.readPoems = readPoems
	return action
}

func (r *VirtualAdminRegistry) TogglePin(username, title string) (string, *string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(username)
	action, pinned := models.TogglePin(state.pinnedTitle, title)
	state.pinnedTitle = pinned
	return action, pinned
}

// state must be called with the mutex held.
func (r *VirtualAdminRegistry) state(username string) *virtualState {
	s, ok := r.states[username]
	if !ok {
		s = &virtualState{}
		r.states[username] = s
	}
	return s
}
