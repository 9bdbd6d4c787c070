package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to botkit! Let's register your first bot account.")
	fmt.Println()

	cfg := DefaultConfig()

	hostPrompt := promptui.Prompt{
		Label:    "Platform host (e.g. cts.example.com)",
		Validate: requireValue,
	}
	host, err := hostPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}

	idPrompt := promptui.Prompt{
		Label:    "Bot id",
		Validate: validateUUID,
	}
	botID, err := idPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("bot id: %w", err)
	}

	secretPrompt := promptui.Prompt{
		Label:    "Secret key",
		Mask:     '*',
		Validate: requireValue,
	}
	secret, err := secretPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}

	portPrompt := promptui.Prompt{
		Label:    "Webhook port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	storePrompt := promptui.Select{
		Label: "Callback store",
		Items: []string{
			"memory - single process",
			"sqlite - shared between processes on one host",
		},
	}
	storeIdx, _, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("store selection: %w", err)
	}
	cfg.Callbacks.Store = []StoreKind{StoreMemory, StoreSQLite}[storeIdx]

	cfg.Accounts = []AccountConfig{{
		ID:        strings.TrimSpace(botID),
		Host:      strings.TrimSpace(host),
		SecretKey: secret,
	}}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func requireValue(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func validateUUID(s string) error {
	if _, err := uuid.Parse(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("not a valid uuid")
	}
	return nil
}

func validatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
