package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups this app’s secrets in the OS keychain.
	KeyringService = "jobcast"

	AccountBotToken     = "telegram-bot-token"
	AccountInferenceKey = "inference-api-key"
)

// Get looks a secret up in the keychain first and falls back to the
// environment (JOBCAST_TELEGRAM_BOT_TOKEN, JOBCAST_INFERENCE_API_KEY) for
// headless deployments without a keyring daemon.
func Get(account string) (string, error) {
	v, err := keyring.Get(KeyringService, account)
	if err == nil && strings.TrimSpace(v) != "" {
		return v, nil
	}

	if env := os.Getenv(envName(account)); strings.TrimSpace(env) != "" {
		return env, nil
	}

	return "", errors.New("secret not found (set it in keychain or via env)")
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("value is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

func envName(account string) string {
	switch account {
	case AccountBotToken:
		return "JOBCAST_TELEGRAM_BOT_TOKEN"
	case AccountInferenceKey:
		return "JOBCAST_INFERENCE_API_KEY"
	default:
		return "JOBCAST_" + strings.ToUpper(strings.ReplaceAll(account, "-", "_"))
	}
}
