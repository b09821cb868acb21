package role

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"lead", Lead, false},
		{"design", Design, false},
		{"verification", Verification, false},
		{"", "", true},
		{"Lead", "", true},
		{"reviewer", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) expected error, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAllCoversEveryRole(t *testing.T) {
	if len(All) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(All))
	}
	seen := make(map[Role]bool)
	for _, r := range All {
		if !r.Valid() {
			t.Errorf("role %q in All is not valid", r)
		}
		if seen[r] {
			t.Errorf("role %q appears twice in All", r)
		}
		seen[r] = true
	}
}
