package commands

import (
	"testing"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr string
	}{
		{name: "numeric", args: []string{"5"}, want: 5},
		{name: "multi digit", args: []string{"12"}, want: 12},
		{name: "hash prefix", args: []string{"#3"}, want: 3},
		{name: "extra args ignored", args: []string{"2", "DONE"}, want: 2},
		{name: "leading zeros", args: []string{"007"}, want: 7},
		{name: "empty", args: nil, wantErr: "task reference required"},
		{name: "blank", args: []string{" "}, wantErr: "task reference required"},
		{name: "zero", args: []string{"0"}, wantErr: "task number out of range: 0"},
		{name: "letter", args: []string{"a1"}, wantErr: "invalid task reference: a1"},
		{name: "negative", args: []string{"-1"}, wantErr: "invalid task reference: -1"},
		{name: "hash only", args: []string{"#"}, wantErr: "invalid task reference: #"},
		{name: "non-ascii digit", args: []string{"٣"}, wantErr: "invalid task reference: ٣"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseTaskRef(tt.args)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got ref %+v", tt.wantErr, ref)
				}
				if err.Error() != tt.wantErr {
					t.Errorf("expected %q, got %q", tt.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.Pos != tt.want {
				t.Errorf("expected Pos %d, got %d", tt.want, ref.Pos)
			}
		})
	}
}

func TestParseTaskRef_RequiredSentinel(t *testing.T) {
	if _, err := ParseTaskRef(nil); err != ErrTaskRefRequired {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}
