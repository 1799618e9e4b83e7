package logger

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
)

func TestSanitizePayloadMasksCredentials(t *testing.T) {
	payload := map[string]any{
		"pin":     "1234",
		"New-Pin": "5678",
		"amount":  "50",
		"nested": map[string]any{
			"password": "4321",
		},
	}

	sanitized, ok := SanitizePayload(payload).(map[string]any)
	if !ok {
		t.Fatalf("expected map payload, got %T", SanitizePayload(payload))
	}
	if sanitized["pin"] != "******" || sanitized["New-Pin"] != "******" {
		t.Fatalf("expected pins to be masked, got %v", sanitized)
	}
	if sanitized["amount"] != "50" {
		t.Fatalf("expected amount to be kept, got %v", sanitized["amount"])
	}
	nested := sanitized["nested"].(map[string]any)
	if nested["password"] != "******" {
		t.Fatalf("expected nested password to be masked, got %v", nested)
	}
}

func TestErrorIncludesErrorField(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	Error("ledger append failed", errors.New("disk full"), Fields{"pin": "1234"})

	out := buf.String()
	if !strings.Contains(out, "ERROR ledger append failed") || !strings.Contains(out, `"error":"disk full"`) {
		t.Fatalf("unexpected log line %q", out)
	}
	if strings.Contains(out, "1234") {
		t.Fatalf("expected pin to be masked, got %q", out)
	}
}
