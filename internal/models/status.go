package models

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// StatusRecipient is the user a status (command menu) request is made for.
type StatusRecipient struct {
	BotID    uuid.UUID
	HUID     uuid.UUID
	ADLogin  string
	ADDomain string
	IsAdmin  *bool
	ChatType ChatType
}

// ParseStatusRecipient reads the status query parameters.
func ParseStatusRecipient(q url.Values) (StatusRecipient, error) {
	botID, err := uuid.Parse(q.Get("bot_id"))
	if err != nil {
		return StatusRecipient{}, &InvalidPayloadError{What: "status query bot_id", Err: err}
	}
	huid, err := uuid.Parse(q.Get("user_huid"))
	if err != nil {
		return StatusRecipient{}, &InvalidPayloadError{What: "status query user_huid", Err: err}
	}
	chatType := q.Get("chat_type")
	if chatType == "" {
		return StatusRecipient{}, &InvalidPayloadError{What: "status query chat_type"}
	}

	r := StatusRecipient{
		BotID:    botID,
		HUID:     huid,
		ADLogin:  q.Get("ad_login"),
		ADDomain: q.Get("ad_domain"),
		ChatType: ChatType(chatType),
	}
	if v := q.Get("is_admin"); v != "" {
		admin, err := strconv.ParseBool(v)
		if err != nil {
			return StatusRecipient{}, &InvalidPayloadError{What: "status query is_admin", Err: err}
		}
		r.IsAdmin = &admin
	}
	return r, nil
}
