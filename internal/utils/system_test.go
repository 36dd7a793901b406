package utils

import (
	"os"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"LowercaseSimple", "Shop", "shop"},
		{"SpacesToHyphens", "My Shop", "my-shop"},
		{"RemoveSpecialChars", "My@Shop#123!", "myshop123"},
		{"RemoveConsecutiveHyphens", "my--shop", "my-shop"},
		{"TrimLeadingPunctuation", "-.my-shop-", "my-shop"},
		{"EmptyToDefault", "", "project"},
		{"OnlySpecialChars", "@#$%", "project"},
		{"PreserveUnderscoresAndDots", "my_shop.v2", "my_shop.v2"},
		{"TrimWhitespace", "  shop  ", "shop"},
		{"TruncateLong", strings.Repeat("a", 200), strings.Repeat("a", MaxNameLength)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := SanitizeName(tc.input)
			if result != tc.expected {
				t.Errorf("SanitizeName(%q) = %q, expected %q", tc.input, result, tc.expected)
			}
			if !IsValidName(result) {
				t.Errorf("SanitizeName(%q) = %q, which is not a valid name", tc.input, result)
			}
		})
	}
}

func TestUniqueName(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		expected string
	}{
		{"NoConflict", nil, "shop"},
		{"AppendsNumberOnConflict", []string{"shop"}, "shop-2"},
		{"IncrementsForMultipleConflicts", []string{"shop", "shop-2", "shop-3"}, "shop-4"},
		{"CaseInsensitiveConflictCheck", []string{"SHOP"}, "shop-2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := uniqueName("shop", tc.existing); got != tc.expected {
				t.Errorf("uniqueName() = %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestGenerateProjectName(t *testing.T) {
	dir := t.TempDir() + "/My Shop"
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	defer os.Chdir(oldDir)

	name, err := GenerateProjectName([]string{"my-shop"})
	if err != nil {
		t.Fatalf("GenerateProjectName failed: %v", err)
	}
	if name != "my-shop-2" {
		t.Errorf("Expected %q, got %q", "my-shop-2", name)
	}
}

func TestGetUsername(t *testing.T) {
	username, err := GetUsername()
	if err != nil {
		t.Fatalf("GetUsername failed: %v", err)
	}
	if username == "" {
		t.Fatal("Expected non-empty username")
	}
}

func TestIsValidName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"botc", true},
		{"my-shop_v1.2", true},
		{"9lives", true},
		{"", false},
		{"-leading", false},
		{".hidden", false},
		{"has space", false},
		{"slash/name", false},
		{strings.Repeat("x", MaxNameLength), true},
		{strings.Repeat("x", MaxNameLength+1), false},
	}

	for _, tt := range tests {
		if got := IsValidName(tt.input); got != tt.want {
			t.Errorf("IsValidName(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
