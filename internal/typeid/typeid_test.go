package typeid

import (
	"strings"
	"testing"
)

func TestNewAndValidate(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
		ok     bool
	}{
		{"element", NewElementID(), PrefixElement, true},
		{"design", NewDesignID(), PrefixDesign, true},
		{"wrong prefix", NewAssetID(), PrefixDesign, false},
		{"garbage", "design_!!", PrefixDesign, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id, tt.prefix)
			if (err == nil) != tt.ok {
				t.Errorf("Validate(%q, %q) = %v", tt.id, tt.prefix, err)
			}
		})
	}

	if id := NewSessionID(); !strings.HasPrefix(id, PrefixSession+"_") {
		t.Errorf("session id = %q", id)
	}
}
