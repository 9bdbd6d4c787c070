package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SmartAppEvent is an event pushed to a smartapp frontend.
type SmartAppEvent struct {
	BotID      uuid.UUID
	ChatID     uuid.UUID
	RefID      Missable[uuid.UUID]
	SmartAppID uuid.UUID
	Data       Object
	Opts       Missable[Object]
	Files      Missable[[]any]
}

type smartAppEventRequest struct {
	RefID       Missable[uuid.UUID] `json:"ref,omitzero"`
	SmartAppID  uuid.UUID           `json:"smartapp_id"`
	GroupChatID uuid.UUID           `json:"group_chat_id"`
	Data        Object              `json:"data"`
	Opts        Missable[Object]    `json:"opts,omitzero"`
	APIVersion  int                 `json:"smartapp_api_version"`
	Files       Missable[[]any]     `json:"async_files,omitzero"`
}

var smartAppEventMethod = &Method{Name: "send_smartapp_event"}

// SmartAppAPIVersion is sent with every smartapp event.
const SmartAppAPIVersion = 1

// SendSmartAppEvent pushes ev to a smartapp.
func (c *Caller) SendSmartAppEvent(ctx context.Context, ev *SmartAppEvent) error {
	data := ev.Data
	if data == nil {
		data = Object{}
	}
	return c.Call(ctx, ev.BotID, smartAppEventMethod, request{
		verb: http.MethodPost,
		path: "/api/v3/botx/smartapps/event",
		body: smartAppEventRequest{
			RefID:       ev.RefID,
			SmartAppID:  ev.SmartAppID,
			GroupChatID: ev.ChatID,
			Data:        data,
			Opts:        ev.Opts,
			APIVersion:  SmartAppAPIVersion,
			Files:       ev.Files,
		},
	}, nil)
}
