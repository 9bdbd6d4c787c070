package bots

import "sort"

// DefaultStatusMessage is shown with the command menu when none is set.
const DefaultStatusMessage = "Bot is working"

// MenuCommand is one entry of the command menu.
type MenuCommand struct {
	Body        string `json:"body"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StatusResult is the result part of a status response.
type StatusResult struct {
	Enabled       bool          `json:"enabled"`
	StatusMessage string        `json:"status_message"`
	Commands      []MenuCommand `json:"commands"`
}

// StatusResponse answers a status request.
type StatusResponse struct {
	Status string       `json:"status"`
	Result StatusResult `json:"result"`
}

// BuildStatusResponse renders menu, sorted by command.
func BuildStatusResponse(menu map[string]string, statusMessage string) *StatusResponse {
	commands := make([]MenuCommand, 0, len(menu))
	for body, description := range menu {
		commands = append(commands, MenuCommand{Body: body, Name: body, Description: description})
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Body < commands[j].Body })

	return &StatusResponse{
		Status: "ok",
		Result: StatusResult{Enabled: true, StatusMessage: statusMessage, Commands: commands},
	}
}

// CommandAcceptedResponse acknowledges an ingested command.
type CommandAcceptedResponse struct {
	Result string `json:"result"`
}

// BuildCommandAcceptedResponse is sent with HTTP 202 once a command is
// queued.
func BuildCommandAcceptedResponse() CommandAcceptedResponse {
	return CommandAcceptedResponse{Result: "accepted"}
}

// ErrorResponse is the error body the platform shows to the user.
type ErrorResponse struct {
	Status    string            `json:"status"`
	Reason    string            `json:"reason"`
	Errors    []string          `json:"errors"`
	ErrorData map[string]string `json:"error_data"`
}

func errorResponse(reason, statusMessage string) ErrorResponse {
	return ErrorResponse{
		Status:    "error",
		Reason:    reason,
		Errors:    []string{},
		ErrorData: map[string]string{"status_message": statusMessage},
	}
}

// BuildBotDisabledResponse tells the platform the bot cannot serve the
// command; statusMessage is displayed to the user.
func BuildBotDisabledResponse(statusMessage string) ErrorResponse {
	return errorResponse("bot_disabled", statusMessage)
}

// BuildUnverifiedRequestResponse rejects a request that failed
// verification.
func BuildUnverifiedRequestResponse(statusMessage string) ErrorResponse {
	return errorResponse("unverified_request", statusMessage)
}
