package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns a map of the dynamic settings currently loaded in memory.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_debug":             Global.App.Debug,
		"app_version":           Global.App.Version,
		"app_environment":       Global.App.Environment,
		"meta_graph_version":    Global.Meta.GraphVersion,
		"meta_verify_signature": Global.Meta.VerifySignature,
		"valkey_enabled":        Global.Valkey.Enabled,
		"events_exchange":       Global.Events.Exchange,
		"pairing_code_ttl":      Global.Pairing.CodeTTL.String(),
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
