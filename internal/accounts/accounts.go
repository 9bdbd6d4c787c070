// Package accounts keeps the credentials of every bot identity served by
// the process together with the auth tokens obtained for them.
package accounts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Account is an immutable bot identity.
type Account struct {
	ID        uuid.UUID
	Host      string
	SecretKey string
}

// UnknownBotAccountError is returned for a bot id that was never registered.
type UnknownBotAccountError struct {
	BotID uuid.UUID
}

func (e *UnknownBotAccountError) Error() string {
	return fmt.Sprintf("no bot account with bot_id: %s", e.BotID)
}

// Registry resolves bot ids to accounts and caches their tokens.
type Registry struct {
	accounts map[uuid.UUID]Account
	order    []uuid.UUID

	mu     sync.RWMutex
	tokens map[uuid.UUID]string
}

// NewRegistry builds a registry. Duplicate ids are rejected.
func NewRegistry(accs ...Account) (*Registry, error) {
	r := &Registry{
		accounts: make(map[uuid.UUID]Account, len(accs)),
		tokens:   make(map[uuid.UUID]string, len(accs)),
	}
	for _, acc := range accs {
		if _, ok := r.accounts[acc.ID]; ok {
			return nil, fmt.Errorf("duplicate bot account %s", acc.ID)
		}
		r.accounts[acc.ID] = acc
		r.order = append(r.order, acc.ID)
	}
	return r, nil
}

// Account returns the account registered under botID.
func (r *Registry) Account(botID uuid.UUID) (Account, error) {
	acc, ok := r.accounts[botID]
	if !ok {
		return Account{}, &UnknownBotAccountError{BotID: botID}
	}
	return acc, nil
}

// EnsureExists fails with UnknownBotAccountError for unregistered ids.
func (r *Registry) EnsureExists(botID uuid.UUID) error {
	_, err := r.Account(botID)
	return err
}

// Host returns the platform host of the account.
func (r *Registry) Host(botID uuid.UUID) (string, error) {
	acc, err := r.Account(botID)
	if err != nil {
		return "", err
	}
	return acc.Host, nil
}

// IDs lists registered bot ids in registration order.
func (r *Registry) IDs() []uuid.UUID {
	return append([]uuid.UUID(nil), r.order...)
}

// Accounts lists registered accounts in registration order.
func (r *Registry) Accounts() []Account {
	out := make([]Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.accounts[id])
	}
	return out
}

// Token returns the cached token for botID.
func (r *Registry) Token(botID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.tokens[botID]
	return tok, ok
}

// SetToken caches a token. Last write wins.
func (r *Registry) SetToken(botID uuid.UUID, token string) {
	r.mu.Lock()
	r.tokens[botID] = token
	r.mu.Unlock()
}

// InvalidateToken drops the cached token so the next call fetches a new one.
func (r *Registry) InvalidateToken(botID uuid.UUID) {
	r.mu.Lock()
	delete(r.tokens, botID)
	r.mu.Unlock()
}

// Signature is the HMAC-SHA256 of the bot id keyed with the account secret,
// in uppercase hex. The platform's token endpoint expects exactly this form.
func (r *Registry) Signature(botID uuid.UUID) (string, error) {
	acc, err := r.Account(botID)
	if err != nil {
		return "", err
	}
	return BuildSignature(acc.ID, acc.SecretKey), nil
}

// BuildSignature computes the token-issuance signature for a bot id.
func BuildSignature(botID uuid.UUID, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(botID.String()))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}
