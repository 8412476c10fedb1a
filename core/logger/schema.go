package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

// redactedKeys hold free-text personal data typed by attendees.
var redactedKeys = map[string]struct{}{
	"name":     {},
	"new_name": {},
	"text":     {},
}

const redactedValue = "[redacted]"

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"command",
	"state",
	"next_state",
	"backend",
	"student_id",
	"position",
	"found",
	"duration_ms",
	"count",
	"guests",
	"imported",
	"skipped",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"db",
	"host",
	"port",
	"path",
	"sheet",
	"err",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
}
