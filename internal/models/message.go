package models

import (
	"github.com/google/uuid"
)

// Device describes the client the sender used.
type Device struct {
	Manufacturer string
	Name         string
	OS           string
	Pushes       *bool
	Timezone     string
	Permissions  map[string]any
}

// ClientApp describes the messenger build the sender used.
type ClientApp struct {
	Platform  string
	PackageID string
	Version   string
}

// Sender is the user that triggered a command.
type Sender struct {
	HUID          *uuid.UUID
	UDID          *uuid.UUID
	ADLogin       string
	ADDomain      string
	Username      string
	IsChatAdmin   *bool
	IsChatCreator *bool
	Locale        string
	Device        Device
	App           ClientApp
}

// IncomingMessage is a user command.
type IncomingMessage struct {
	Envelope

	SourceSyncID *uuid.UUID
	Body         string
	// Command is the handler name the message was routed to; empty for the
	// default handler.
	Command string
	// Argument is the body without the command token.
	Argument string

	Data     map[string]any
	Metadata map[string]any

	Sender Sender
	Chat   Chat

	Attachments []Attachment
	Entities    []Entity
	AsyncFiles  []AsyncFile
}

// CommandToken returns the first whitespace-delimited token of the body.
func (m *IncomingMessage) CommandToken() string {
	token, _ := splitBody(m.Body)
	return token
}

// Mentions returns the mention entities of the message.
func (m *IncomingMessage) Mentions() []*Mention {
	var out []*Mention
	for _, e := range m.Entities {
		if mention, ok := e.(*Mention); ok {
			out = append(out, mention)
		}
	}
	return out
}

// Forward returns the forward entity, if any.
func (m *IncomingMessage) Forward() *Forward {
	for _, e := range m.Entities {
		if f, ok := e.(*Forward); ok {
			return f
		}
	}
	return nil
}

// Reply returns the reply entity, if any.
func (m *IncomingMessage) Reply() *Reply {
	for _, e := range m.Entities {
		if r, ok := e.(*Reply); ok {
			return r
		}
	}
	return nil
}

// Unrecognised lists attachments and entities kept as opaque records.
func (m *IncomingMessage) Unrecognised() []Opaque {
	return unrecognised(m.Attachments, m.Entities)
}

func unrecognised(attachments []Attachment, entities []Entity) []Opaque {
	var out []Opaque
	for _, a := range attachments {
		if u, ok := a.(*UnknownAttachment); ok {
			out = append(out, u)
		}
	}
	for _, e := range entities {
		if u, ok := e.(*UnknownEntity); ok {
			out = append(out, u)
		}
	}
	return out
}
