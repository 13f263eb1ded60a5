package web

import (
	"testing"

	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cockroachdb/errors"
)

func TestIsValidName(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"", true},
		{"demo", true},
		{"demo tree", true},
		{"orders-5", true},
		{"v1.2", true},
		{"_scratch", true},
		{" lead", false},     // starts with a space
		{"-dash", false},     // starts with a dash
		{"<b>", false},       // markup
		{"a/b", false},       // slash
		{"tab\tname", false}, // control character
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidName(tt.input); got != tt.valid {
				t.Errorf("IsValidName(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestValidateOrder(t *testing.T) {
	for _, order := range []int{bptree.MinOrder, 4, MaxOrder} {
		if err := ValidateOrder(order); err != nil {
			t.Errorf("ValidateOrder(%d) = %v", order, err)
		}
	}
	for _, order := range []int{-1, 0, 2, MaxOrder + 1} {
		err := ValidateOrder(order)
		if !errors.Is(err, bptree.ErrInvalidOrder) {
			t.Errorf("ValidateOrder(%d) = %v, want ErrInvalidOrder", order, err)
		}
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		input string
		key   int
		ok    bool
	}{
		{"10", 10, true},
		{" 7 ", 7, true},
		{"-3", -3, true},
		{"999999999", MaxKey, true},
		{"1000000000", 0, false},
		{"", 0, false},
		{"1.5", 0, false},
		{"ten", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key, err := ParseKey(tt.input)
			if tt.ok {
				if err != nil || key != tt.key {
					t.Errorf("ParseKey(%q) = %d, %v; want %d", tt.input, key, err, tt.key)
				}
				return
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseKey(%q) error = %v, want ErrInvalidInput", tt.input, err)
			}
		})
	}
}
