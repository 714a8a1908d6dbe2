package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"user":"alice"}`, ""},
		{"empty body", ``, "request body is empty"},
		{"malformed", `{"user":`, "invalid JSON in request body"},
		{"syntax error", `{"user" "alice"}`, "malformed JSON"},
		{"wrong type", `{"user":42}`, `invalid value for field "user"`},
		{"unknown field", `{"user":"alice","role":"admin"}`, `unknown field "role"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			var dst TakeAlertRequest
			err := DecodeJSON(r, &dst)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if dst.User != "alice" {
					t.Errorf("user = %q, want alice", dst.User)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"user":"` + strings.Repeat("a", MaxBodySize) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	var dst TakeAlertRequest
	if err := DecodeJSON(r, &dst); err == nil || !strings.Contains(err.Error(), "exceeds maximum size") {
		t.Errorf("error = %v, want size error", err)
	}
}

func TestDecodeOptionalJSON_EmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/test", nil)
	var dst IgnoreAlertRequest
	if err := DecodeOptionalJSON(r, &dst); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value   string
		want    uint
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/alerts/x", nil)
			r.SetPathValue("id", tt.value)
			got, err := PathID(r, "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PathID = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/test?machine_id=4&threshold=55.5&bad=x", nil)

	if id, err := QueryID(r, "machine_id"); err != nil || id != 4 {
		t.Errorf("QueryID = %d, %v; want 4", id, err)
	}
	if id, err := QueryID(r, "missing"); err != nil || id != 0 {
		t.Errorf("QueryID(missing) = %d, %v; want 0", id, err)
	}
	if f, err := QueryFloat(r, "threshold"); err != nil || f != 55.5 {
		t.Errorf("QueryFloat = %v, %v; want 55.5", f, err)
	}
	if _, err := QueryFloat(r, "bad"); err == nil {
		t.Error("expected error for non-numeric threshold")
	}
}
