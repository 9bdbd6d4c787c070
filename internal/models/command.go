// Package models holds the typed inbound commands delivered by the platform
// and the parser that builds them from raw webhook payloads.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// BotAPIVersion is the only proto_version accepted from the platform.
const BotAPIVersion = 4

// CommandType is the command.command_type discriminator.
type CommandType string

const (
	CommandTypeUser   CommandType = "user"
	CommandTypeSystem CommandType = "system"
)

// ChatType is the kind of conversation a command came from.
type ChatType string

const (
	ChatTypePersonal ChatType = "chat"
	ChatTypeGroup    ChatType = "group_chat"
	ChatTypeChannel  ChatType = "channel"
	ChatTypeThread   ChatType = "thread"
)

// BotRef identifies the bot account a command was addressed to.
type BotRef struct {
	ID   uuid.UUID
	Host string
}

// Chat is the conversation a command belongs to.
type Chat struct {
	ID   uuid.UUID
	Type ChatType
	Host string
}

// Envelope carries the fields shared by every inbound command.
type Envelope struct {
	Bot    BotRef
	SyncID uuid.UUID
	Raw    json.RawMessage
	// State passes values from middlewares to the handler of one command.
	State *State
}

// Head returns the shared envelope.
func (e *Envelope) Head() *Envelope { return e }

// Command is either an *IncomingMessage or a SystemEvent.
type Command interface {
	Head() *Envelope
}

// State is a concurrency-safe bag of values.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState creates an empty bag.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Delete removes a value.
func (s *State) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Keys lists stored keys.
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// UnsupportedBotAPIVersionError rejects payloads with a foreign proto_version.
type UnsupportedBotAPIVersionError struct {
	Version int
}

func (e *UnsupportedBotAPIVersionError) Error() string {
	return fmt.Sprintf("unsupported Bot API version: %d, expected %d", e.Version, BotAPIVersion)
}

// UnknownSystemEventError is returned for a system command with an
// unrecognised body.
type UnknownSystemEventError struct {
	Body string
}

func (e *UnknownSystemEventError) Error() string {
	return fmt.Sprintf("unknown system event: %q", e.Body)
}

// InvalidPayloadError wraps structural problems in an inbound payload.
type InvalidPayloadError struct {
	What string
	Err  error
}

func (e *InvalidPayloadError) Error() string {
	if e.Err == nil {
		return "invalid " + e.What
	}
	return fmt.Sprintf("invalid %s: %v", e.What, e.Err)
}

func (e *InvalidPayloadError) Unwrap() error { return e.Err }

// splitBody returns the first whitespace-delimited token and the remainder.
func splitBody(body string) (string, string) {
	body = strings.TrimSpace(body)
	idx := strings.IndexFunc(body, unicode.IsSpace)
	if idx < 0 {
		return body, ""
	}
	return body[:idx], strings.TrimSpace(body[idx:])
}
