package models

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
)

const (
	testBotID  = "24348246-6791-4ac0-9d86-b948cd6a0e46"
	testChatID = "dea55ee4-7a9f-5da0-8c5d-4e6e2bb9e6c4"
	testHUID   = "f16cdc5f-6366-5552-9ecd-c36290ab3d11"
	testSyncID = "6f40a492-4b5f-54f3-87ee-77126d825b51"
)

func messagePayload(body string, extra string) string {
	return `{
		"bot_id": "` + testBotID + `",
		"sync_id": "` + testSyncID + `",
		"source_sync_id": null,
		"proto_version": 4,
		"command": {"body": "` + body + `", "command_type": "user", "data": {"k": "v"}, "metadata": {"account_id": 94}},
		"from": {
			"user_huid": "` + testHUID + `",
			"group_chat_id": "` + testChatID + `",
			"chat_type": "chat",
			"host": "cts.example.com",
			"ad_login": "jdoe",
			"ad_domain": "example.com",
			"username": "Jane",
			"is_admin": true,
			"is_creator": false,
			"locale": "en",
			"device": "Firefox 91.0",
			"device_software": "Linux",
			"device_meta": {"pushes": false, "timezone": "Europe/Moscow", "permissions": {}},
			"platform": "web",
			"platform_package_id": "ru.unlimitedtech.express",
			"app_version": "1.21.9",
			"manufacturer": "Mozilla"
		}` + extra + `
	}`
}

func TestParseUserMessage(t *testing.T) {
	cmd, err := ParseCommand([]byte(messagePayload("/hello world", `,
		"attachments": [], "entities": [], "async_files": []`)))
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}

	msg, ok := cmd.(*IncomingMessage)
	if !ok {
		t.Fatalf("expected *IncomingMessage, got %T", cmd)
	}
	if msg.Body != "/hello world" {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.CommandToken() != "/hello" {
		t.Errorf("command token = %q", msg.CommandToken())
	}
	if msg.Argument != "world" {
		t.Errorf("argument = %q", msg.Argument)
	}
	if msg.Bot.ID.String() != testBotID || msg.Bot.Host != "cts.example.com" {
		t.Errorf("bot = %+v", msg.Bot)
	}
	if msg.Chat.ID.String() != testChatID || msg.Chat.Type != ChatTypePersonal {
		t.Errorf("chat = %+v", msg.Chat)
	}
	if msg.Sender.HUID == nil || msg.Sender.HUID.String() != testHUID {
		t.Errorf("sender huid = %v", msg.Sender.HUID)
	}
	if msg.Sender.ADLogin != "jdoe" || msg.Sender.IsChatAdmin == nil || !*msg.Sender.IsChatAdmin {
		t.Errorf("sender = %+v", msg.Sender)
	}
	if msg.Sender.Device.Timezone != "Europe/Moscow" || msg.Sender.App.Platform != "web" {
		t.Errorf("device/app = %+v / %+v", msg.Sender.Device, msg.Sender.App)
	}
	if msg.Data["k"] != "v" {
		t.Errorf("data = %v", msg.Data)
	}
	if msg.State == nil {
		t.Error("expected per-message state")
	}
	if len(msg.Raw) == 0 {
		t.Error("expected raw payload to be kept")
	}
}

func TestParseAttachmentsAndEntities(t *testing.T) {
	extra := `,
		"attachments": [
			{"type": "image", "data": {"content": "data:image/jpg;base64,eDnXAc1FEUB0VFEFctII3lRlRBcetROeFfduPmXxE=", "file_name": "image.jpg"}},
			{"type": "location", "data": {"location_name": "Office", "location_address": "Main st", "location_lat": "55.7", "location_lng": "37.6"}},
			{"type": "hologram", "data": {"depth": 3}}
		],
		"entities": [
			{"type": "mention", "data": {"mention_type": "user", "mention_id": "c06a96fa-7881-0bb6-0e0b-0af72fe3683f", "mention_data": {"user_huid": "` + testHUID + `", "name": "Jane", "conn_type": "cts"}}},
			{"type": "reply", "data": {"source_sync_id": "a7ffba12-8d0a-534e-8896-a0aa2d93a434", "sender": "` + testHUID + `", "body": "earlier", "reply_type": "chat", "source_group_chat_id": "` + testChatID + `", "source_chat_name": "Chat"}},
			{"type": "poll", "data": {"question": "?"}}
		],
		"async_files": [
			{"type": "document", "file": "https://cts.example.com/uploads/file.pdf", "file_mime_type": "application/pdf", "file_name": "file.pdf", "file_size": 1502345, "file_hash": "Jd9r+OKpw5y+FSCg1xNTSUkwEo4nCW1Sn1AkotkOpH0=", "file_id": "8dada2c8-67a6-4434-9dec-570d244e78ee"}
		]`

	cmd, err := ParseCommand([]byte(messagePayload("hi", extra)))
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	msg := cmd.(*IncomingMessage)

	if len(msg.Attachments) != 3 {
		t.Fatalf("attachments = %d, want 3", len(msg.Attachments))
	}
	img, ok := msg.Attachments[0].(*FileAttachment)
	if !ok || img.Type != AttachmentImage || img.FileName != "image.jpg" {
		t.Errorf("attachments[0] = %#v", msg.Attachments[0])
	}
	if loc, ok := msg.Attachments[1].(*LocationAttachment); !ok || loc.Name != "Office" {
		t.Errorf("attachments[1] = %#v", msg.Attachments[1])
	}

	mentions := msg.Mentions()
	if len(mentions) != 1 || mentions[0].Name != "Jane" || mentions[0].EntityID == nil {
		t.Errorf("mentions = %+v", mentions)
	}
	if r := msg.Reply(); r == nil || r.Body != "earlier" {
		t.Errorf("reply = %+v", r)
	}
	if msg.Forward() != nil {
		t.Error("expected no forward")
	}

	unknown := msg.Unrecognised()
	if len(unknown) != 2 {
		t.Fatalf("unrecognised = %d, want 2", len(unknown))
	}
	if unknown[0].TypeName() != "attachment:hologram" || !strings.Contains(string(unknown[0].RawJSON()), `"depth"`) {
		t.Errorf("unknown attachment = %s %s", unknown[0].TypeName(), unknown[0].RawJSON())
	}
	if unknown[1].TypeName() != "entity:poll" {
		t.Errorf("unknown entity = %s", unknown[1].TypeName())
	}

	if len(msg.AsyncFiles) != 1 || msg.AsyncFiles[0].Size != 1502345 || msg.AsyncFiles[0].Type != AttachmentDocument {
		t.Errorf("async files = %+v", msg.AsyncFiles)
	}
}

func TestParseUnsupportedVersion(t *testing.T) {
	for _, payload := range []string{
		`{"bot_id": "` + testBotID + `", "proto_version": 3, "command": {"body": "/x", "command_type": "user"}}`,
		`{"bot_id": "` + testBotID + `", "command": {"body": "/x", "command_type": "user"}}`,
		`{"proto_version": 5, "garbage": true}`,
	} {
		_, err := ParseCommand([]byte(payload))
		var unsupported *UnsupportedBotAPIVersionError
		if !errors.As(err, &unsupported) {
			t.Errorf("expected UnsupportedBotAPIVersionError for %s, got %v", payload, err)
		}
	}
}

func systemPayload(body, data string) string {
	return `{
		"bot_id": "` + testBotID + `",
		"sync_id": "` + testSyncID + `",
		"proto_version": 4,
		"command": {"body": "` + body + `", "command_type": "system", "data": ` + data + `, "metadata": {}},
		"from": {"group_chat_id": "` + testChatID + `", "chat_type": "group_chat", "host": "cts.example.com", "user_huid": null},
		"attachments": [], "entities": [], "async_files": []
	}`
}

func TestParseSystemEvents(t *testing.T) {
	tests := []struct {
		body string
		data string
		kind EventKind
	}{
		{"system:chat_created", `{"group_chat_id": "` + testChatID + `", "chat_type": "group_chat", "name": "Team", "creator": "` + testHUID + `", "members": [{"huid": "` + testHUID + `", "name": "Jane", "user_kind": "user", "admin": true}]}`, EventChatCreated},
		{"system:added_to_chat", `{"added_members": ["` + testHUID + `"]}`, EventAddedToChat},
		{"system:deleted_from_chat", `{"deleted_members": ["` + testHUID + `"]}`, EventDeletedFromChat},
		{"system:left_from_chat", `{"left_members": ["` + testHUID + `"]}`, EventLeftFromChat},
		{"system:cts_login", `{"user_huid": "` + testHUID + `", "cts_id": "` + testChatID + `"}`, EventCTSLogin},
		{"system:cts_logout", `{"user_huid": "` + testHUID + `", "cts_id": "` + testChatID + `"}`, EventCTSLogout},
		{"system:internal_bot_notification", `{"data": {"message": "ping"}, "opts": {"internal_token": "t"}}`, EventInternalBotNotification},
		{"system:smartapp_event", `{"ref": "` + testSyncID + `", "smartapp_id": "` + testBotID + `", "data": {"type": "open"}, "opts": {}, "smartapp_api_version": 1}`, EventSmartAppEvent},
		{"system:event_edit", `{"body": "edited"}`, EventEdit},
		{"system:chat_deleted_by_user", `{"user_huid": "` + testHUID + `", "group_chat_id": "` + testChatID + `"}`, EventChatDeletedByUser},
	}

	for _, tt := range tests {
		cmd, err := ParseCommand([]byte(systemPayload(tt.body, tt.data)))
		if err != nil {
			t.Errorf("%s: ParseCommand: %v", tt.body, err)
			continue
		}
		ev, ok := cmd.(SystemEvent)
		if !ok {
			t.Errorf("%s: expected SystemEvent, got %T", tt.body, cmd)
			continue
		}
		if ev.Kind() != tt.kind {
			t.Errorf("%s: kind = %s", tt.body, ev.Kind())
		}
		if ev.Head().Bot.ID.String() != testBotID {
			t.Errorf("%s: bot id = %s", tt.body, ev.Head().Bot.ID)
		}
	}
}

func TestParseChatCreatedFields(t *testing.T) {
	cmd, err := ParseCommand([]byte(systemPayload("system:chat_created",
		`{"group_chat_id": "`+testChatID+`", "chat_type": "group_chat", "name": "Team", "creator": "`+testHUID+`", "members": [{"huid": "`+testHUID+`", "name": "Jane", "user_kind": "user", "admin": true}]}`)))
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	ev := cmd.(*ChatCreatedEvent)
	if ev.ChatName != "Team" || ev.Chat.Type != ChatTypeGroup || len(ev.Members) != 1 || !ev.Members[0].IsAdmin {
		t.Errorf("event = %+v", ev)
	}
}

func TestParseUnknownSystemEvent(t *testing.T) {
	_, err := ParseCommand([]byte(systemPayload("system:teleported", `{}`)))
	var unknown *UnknownSystemEventError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSystemEventError, got %v", err)
	}
	if unknown.Body != "system:teleported" {
		t.Errorf("body = %q", unknown.Body)
	}
}

func TestParseInvalidPayloads(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"proto_version": 4, "bot_id": "not-a-uuid", "command": {"command_type": "user"}}`,
		`{"proto_version": 4, "command": {"command_type": "user"}}`,
		`{"proto_version": 4, "bot_id": "` + testBotID + `", "command": {"command_type": "robot"}}`,
		messagePayload("hi", `, "attachments": [{"type": "image", "data": 5}]`),
	} {
		_, err := ParseCommand([]byte(payload))
		var invalid *InvalidPayloadError
		if !errors.As(err, &invalid) {
			t.Errorf("expected InvalidPayloadError for %s, got %v", payload, err)
		}
	}
}

func TestParseStatusRecipient(t *testing.T) {
	q := url.Values{}
	q.Set("bot_id", testBotID)
	q.Set("user_huid", testHUID)
	q.Set("chat_type", "chat")
	q.Set("ad_login", "jdoe")
	q.Set("ad_domain", "example.com")
	q.Set("is_admin", "true")

	r, err := ParseStatusRecipient(q)
	if err != nil {
		t.Fatalf("ParseStatusRecipient: %v", err)
	}
	if r.BotID != uuid.MustParse(testBotID) || r.ChatType != ChatTypePersonal || r.IsAdmin == nil || !*r.IsAdmin {
		t.Errorf("recipient = %+v", r)
	}

	q.Set("is_admin", "maybe")
	if _, err := ParseStatusRecipient(q); err == nil {
		t.Error("expected error for bad is_admin")
	}
	q.Del("is_admin")
	q.Del("bot_id")
	if _, err := ParseStatusRecipient(q); err == nil {
		t.Error("expected error for missing bot_id")
	}
}

func TestState(t *testing.T) {
	s := NewState()
	s.Set("user", 42)
	if v, ok := s.Get("user"); !ok || v != 42 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	s.Delete("user")
	if _, ok := s.Get("user"); ok {
		t.Fatal("expected key to be deleted")
	}
}
