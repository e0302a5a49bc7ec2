package session

import (
	"context"
	"errors"
	"sync"
)

// ErrBadCredential is returned by an Authenticator when the account does not
// exist or the password does not match. The login handler answers it with a
// typed failure response instead of closing the connection.
var ErrBadCredential = errors.New("session: unknown account or wrong password")

// Account is the durable identity an Authenticator resolves a credential
// pair to. Position and currency are restored separately from the state
// store; the account carries what the store does not.
type Account struct {
	AccountID   uint32
	CharacterID uint32
	Gold        uint32
	HairID      uint16
	FaceID      uint16
	ClanID      uint32
	Moderator   bool
}

// Authenticator resolves a credential pair to an account. The account
// database itself is an external collaborator; the engine only consumes this
// surface.
type Authenticator interface {
	// Authenticate verifies the credential pair.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - username: The account name
	//   - password: The password
	//
	// Returns:
	//   - The resolved Account on success
	//   - ErrBadCredential on a failed match, other errors on backend failure
	Authenticate(ctx context.Context, username, password string) (Account, error)
}

// memoryAccount pairs an account with its password.
type memoryAccount struct {
	password string
	account  Account
}

// MemoryAuthenticator is an in-process account table. It backs development
// servers and tests; production deployments plug in their own Authenticator.
type MemoryAuthenticator struct {
	mu       sync.RWMutex
	accounts map[string]memoryAccount
}

// NewMemoryAuthenticator creates an empty MemoryAuthenticator.
//
// Returns:
//   - A new MemoryAuthenticator safe for concurrent use
func NewMemoryAuthenticator() *MemoryAuthenticator {
	return &MemoryAuthenticator{
		accounts: make(map[string]memoryAccount),
	}
}

// Register adds or replaces an account.
//
// Parameters:
//   - username: The account name
//   - password: The password
//   - account: The account the credentials resolve to
func (a *MemoryAuthenticator) Register(username, password string, account Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[username] = memoryAccount{password: password, account: account}
}

// Authenticate implements Authenticator.
func (a *MemoryAuthenticator) Authenticate(_ context.Context, username, password string) (Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.accounts[username]
	if !ok || entry.password != password {
		return Account{}, ErrBadCredential
	}

	return entry.account, nil
}
