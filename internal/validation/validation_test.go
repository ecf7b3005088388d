package validation

import (
	"strings"
	"testing"
)

// --- ValidateRequired Tests ---

func TestValidateRequired_Present(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"plain", "hello"},
		{"unicode", "世界"},
		{"padded", "  hi  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequired("field", tt.value)
			if err != nil {
				t.Errorf("ValidateRequired(%q) = %v, want nil", tt.value, err)
			}
		})
	}
}

func TestValidateRequired_Missing(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"tabs", "\t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequired("username", tt.value)
			if err == nil {
				t.Errorf("ValidateRequired(%q) = nil, want error", tt.value)
				return
			}
			if err.Field != "username" {
				t.Errorf("error.Field = %q, want %q", err.Field, "username")
			}
		})
	}
}

// --- ValidateMinLength Tests ---

func TestValidateMinLength(t *testing.T) {
	if err := ValidateMinLength("password", "12345678", 8); err != nil {
		t.Errorf("ValidateMinLength(8 chars, 8) = %v, want nil", err)
	}
	if err := ValidateMinLength("password", "1234567", 8); err == nil {
		t.Error("ValidateMinLength(7 chars, 8) = nil, want error")
	}
	// Runes, not bytes
	if err := ValidateMinLength("password", "世界世界", 4); err != nil {
		t.Errorf("ValidateMinLength(4 runes, 4) = %v, want nil", err)
	}
}

// --- ValidateMaxLength Tests ---

func TestValidateMaxLength(t *testing.T) {
	if err := ValidateMaxLength("name", strings.Repeat("a", 255), 255); err != nil {
		t.Errorf("ValidateMaxLength(255, 255) = %v, want nil", err)
	}
	if err := ValidateMaxLength("name", strings.Repeat("a", 256), 255); err == nil {
		t.Error("ValidateMaxLength(256, 255) = nil, want error")
	}
}

// --- ValidateEnum Tests ---

func TestValidateEnum(t *testing.T) {
	allowed := []string{"pending", "synced", "failed"}

	if err := ValidateEnum("sync_status", "synced", allowed); err != nil {
		t.Errorf("ValidateEnum(synced) = %v, want nil", err)
	}
	err := ValidateEnum("sync_status", "done", allowed)
	if err == nil {
		t.Fatal("ValidateEnum(done) = nil, want error")
	}
	if !strings.Contains(err.Message, "pending") {
		t.Errorf("error message %q should list allowed values", err.Message)
	}
}

// --- Coordinate Tests ---

func TestValidateLatitude(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"north pole", 90, false},
		{"south pole", -90, false},
		{"too far north", 90.1, true},
		{"too far south", -90.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLatitude("latitude", tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLatitude(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLongitude(t *testing.T) {
	if err := ValidateLongitude("longitude", 180); err != nil {
		t.Errorf("ValidateLongitude(180) = %v, want nil", err)
	}
	if err := ValidateLongitude("longitude", -180.5); err == nil {
		t.Error("ValidateLongitude(-180.5) = nil, want error")
	}
}

// --- Collector Tests ---

func TestCollector_AccumulatesErrors(t *testing.T) {
	var c Collector

	c.Add(ValidateRequired("username", ""))
	c.Add(ValidateRequired("password", "secret12"))
	c.Add(ValidateMinLength("password", "secret12", 8))
	c.Add(ValidateLatitude("latitude", 95))

	if !c.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}
	errs := c.Errors()
	if len(errs) != 2 {
		t.Fatalf("len(Errors()) = %d, want 2", len(errs))
	}
	if errs[0].Field != "username" || errs[1].Field != "latitude" {
		t.Errorf("unexpected error fields: %+v", errs)
	}
}

func TestCollector_Empty(t *testing.T) {
	var c Collector
	c.Add(nil)
	if c.HasErrors() {
		t.Error("HasErrors() = true for empty collector")
	}
}
