package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("DataDir", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Required("DataDir", "/var/lib/seqlog")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_RangeInt(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		min       int
		max       int
		expectErr bool
	}{
		{"below range", 0, 1, 10, true},
		{"above range", 15, 1, 10, true},
		{"at min", 1, 1, 10, false},
		{"at max", 10, 1, 10, false},
		{"in range", 5, 1, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			cv.RangeInt("MaxEntrySeek", tt.value, tt.min, tt.max)

			if tt.expectErr && !cv.HasErrors() {
				t.Error("Expected error")
			}
			if !tt.expectErr && cv.HasErrors() {
				t.Errorf("Unexpected error: %v", cv.Validate())
			}
		})
	}
}

func TestConfigValidator_Positive(t *testing.T) {
	for _, value := range []int{0, -5} {
		cv := NewConfigValidator("TestConfig")
		cv.Positive("Count", value)
		if !cv.HasErrors() {
			t.Errorf("Expected error for %d", value)
		}
	}

	cv := NewConfigValidator("TestConfig")
	cv.Positive("Count", 5)
	if cv.HasErrors() {
		t.Error("Expected no error for positive value")
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	allowed := []string{"none", "snappy", "zstd"}

	cv := NewConfigValidator("TestConfig")
	cv.OneOf("Compression", "lz4", allowed)

	if !cv.HasErrors() {
		t.Error("Expected error for value not in allowed list")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.OneOf("Compression", "zstd", allowed)

	if cv2.HasErrors() {
		t.Error("Expected no error for allowed value")
	}
}

func TestConfigValidator_Custom(t *testing.T) {
	sentinel := errors.New("custom validation failed")

	cv := NewConfigValidator("TestConfig")
	cv.Custom("CustomField", func() error { return sentinel })

	if !errors.Is(cv.Validate(), sentinel) {
		t.Errorf("Expected wrapped custom error, got %v", cv.Validate())
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Custom("CustomField", func() error { return nil })

	if cv2.HasErrors() {
		t.Error("Expected no error from passing custom validation")
	}
}

func TestConfigValidator_When(t *testing.T) {
	// Condition true - validation should run
	cv := NewConfigValidator("TestConfig")
	cv.When(true, func(v *ConfigValidator) {
		v.Positive("Count", -1)
	})

	if !cv.HasErrors() {
		t.Error("Expected error when condition is true")
	}

	// Condition false - validation should not run
	cv2 := NewConfigValidator("TestConfig")
	cv2.When(false, func(v *ConfigValidator) {
		v.Positive("Count", -1)
	})

	if cv2.HasErrors() {
		t.Error("Expected no error when condition is false")
	}
}

func TestConfigValidator_Struct(t *testing.T) {
	type settings struct {
		Name  string `validate:"required"`
		Level string `validate:"oneof=debug info"`
	}

	cv := NewConfigValidator("Settings")
	cv.Struct(&settings{Level: "info"})
	err := cv.Validate()
	if err == nil || !strings.Contains(err.Error(), "Settings.Name: field is required") {
		t.Errorf("Expected required error for Name, got %v", err)
	}

	cv2 := NewConfigValidator("Settings")
	cv2.Struct(&settings{Name: "x", Level: "info"})
	if cv2.HasErrors() {
		t.Errorf("Unexpected error: %v", cv2.Validate())
	}
}

func TestConfigValidator_MultipleErrors(t *testing.T) {
	first := errors.New("first")
	cv := NewConfigValidator("TestConfig")
	cv.Required("Name", "").
		Positive("Count", -1).
		Custom("Other", func() error { return first })

	if len(cv.Errors()) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(cv.Errors()))
	}

	err := cv.Validate()
	if !strings.Contains(err.Error(), "3 errors") {
		t.Errorf("Expected error count in message, got %v", err)
	}
	if !errors.Is(err, first) {
		t.Error("Expected joined error to wrap every failure")
	}
}

func TestDefaultOr(t *testing.T) {
	if DefaultOr("", "default") != "default" {
		t.Error("Expected default for empty string")
	}
	if DefaultOr("value", "default") != "value" {
		t.Error("Expected value for non-empty string")
	}
	if DefaultOr(0, 10) != 10 {
		t.Error("Expected default for zero")
	}
	if DefaultOr(-5, 10) != -5 {
		t.Error("Expected negative value to be kept")
	}
}
