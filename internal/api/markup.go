package api

import (
	"encoding/base64"
	"mime"
	"path/filepath"

	"github.com/google/uuid"
)

// ButtonOpts tunes how a button renders and what pressing it does.
type ButtonOpts struct {
	Silent    Missable[bool]   `json:"silent,omitzero"`
	HSize     Missable[int]    `json:"h_size,omitzero"`
	AlertText Missable[string] `json:"alert_text,omitzero"`
	ShowAlert Missable[bool]   `json:"show_alert,omitzero"`
	Handler   Missable[string] `json:"handler,omitzero"`
	Link      Missable[string] `json:"link,omitzero"`
}

// Button is a single bubble or keyboard button.
type Button struct {
	Command string     `json:"command"`
	Label   string     `json:"label"`
	Data    Object     `json:"data"`
	Opts    ButtonOpts `json:"opts"`
}

// Markup is a grid of buttons, one slice per row.
type Markup [][]Button

// AddRow appends a row and returns the markup for chaining.
func (m Markup) AddRow(buttons ...Button) Markup {
	return append(m, buttons)
}

// OutgoingFile is an inline file sent with a message, encoded as a data URL.
type OutgoingFile struct {
	FileName string `json:"file_name"`
	Data     string `json:"data"`
}

// NewOutgoingFile encodes content as a data URL. An empty mimeType is
// guessed from the file extension.
func NewOutgoingFile(fileName string, content []byte, mimeType string) *OutgoingFile {
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(fileName))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &OutgoingFile{
		FileName: fileName,
		Data:     "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content),
	}
}

// OutgoingMessage is a message to send to a chat. Optional fields left
// absent are not sent at all.
type OutgoingMessage struct {
	BotID  uuid.UUID
	ChatID uuid.UUID
	Body   string

	Metadata         Missable[Object]
	Bubbles          Missable[Markup]
	Keyboard         Missable[Markup]
	File             Missable[*OutgoingFile]
	Recipients       Missable[[]uuid.UUID]
	SilentResponse   Missable[bool]
	MarkupAutoAdjust Missable[bool]
	StealthMode      Missable[bool]
	SendPush         Missable[bool]
	IgnoreMute       Missable[bool]
}

// EditMessage describes changes to a message sent earlier. Absent fields
// stay untouched; Some(nil) for File removes the attachment.
type EditMessage struct {
	BotID  uuid.UUID
	SyncID uuid.UUID

	Body             Missable[string]
	Metadata         Missable[Object]
	Bubbles          Missable[Markup]
	Keyboard         Missable[Markup]
	File             Missable[*OutgoingFile]
	MarkupAutoAdjust Missable[bool]
}
