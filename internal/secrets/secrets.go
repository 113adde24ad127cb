package secrets

import (
	"fmt"
	"os"
	"strings"
)

// GetSecret resolves a credential such as ODDS_API_KEY.
// ODDS_API_KEY_FILE (Docker secrets style) wins over ODDS_API_KEY; the default
// is returned only when neither is set.
func GetSecret(envKey string, defaultValue string) (string, error) {
	if path := os.Getenv(envKey + "_FILE"); path != "" {
		return readSecretFile(path)
	}

	if value := strings.TrimSpace(os.Getenv(envKey)); value != "" {
		return value, nil
	}

	return defaultValue, nil
}

// GetOptionalSecret is GetSecret for credentials that may be absent: an
// unreadable secret file falls back to the default.
func GetOptionalSecret(envKey string, defaultValue string) string {
	value, err := GetSecret(envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file %s: %w", path, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return value, nil
}
