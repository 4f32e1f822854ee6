package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/turnstile/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"CollectionID", id.NewCollectionID, "col_"},
		{"FeeRecordID", id.NewFeeRecordID, "fee_"},
		{"CheckInID", id.NewCheckInID, "chk_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixCollection)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixCollection {
		t.Errorf("expected prefix %q, got %q", id.PrefixCollection, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"CollectionID", id.NewCollectionID, id.ParseCollectionID},
		{"FeeRecordID", id.NewFeeRecordID, id.ParseFeeRecordID},
		{"CheckInID", id.NewCheckInID, id.ParseCheckInID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := tt.newFn()
			parsed, err := tt.parseFn(orig.String())
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if parsed.String() != orig.String() {
				t.Errorf("round trip: got %q, want %q", parsed.String(), orig.String())
			}
		})
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	colID := id.NewCollectionID()
	if _, err := id.ParseFeeRecordID(colID.String()); err == nil {
		t.Error("expected error parsing collection ID as fee record ID")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		"",
		"not a typeid",
		"col_!!!",
	}

	for _, input := range tests {
		if _, err := id.Parse(input); err == nil {
			t.Errorf("Parse(%q): expected error", input)
		}
	}
}

func TestNilID(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Error("Nil should report IsNil")
	}
	if id.Nil.String() != "" {
		t.Errorf("Nil.String() = %q, want empty", id.Nil.String())
	}
}

func TestTextMarshaling(t *testing.T) {
	orig := id.NewCollectionID()

	data, err := orig.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed id.ID
	if err := parsed.UnmarshalText(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("round trip: got %q, want %q", parsed.String(), orig.String())
	}
}

func TestScan(t *testing.T) {
	orig := id.NewCollectionID()

	var scanned id.ID
	if err := scanned.Scan(orig.String()); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if scanned.String() != orig.String() {
		t.Errorf("scan: got %q, want %q", scanned.String(), orig.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !fromNil.IsNil() {
		t.Error("scan nil should yield Nil ID")
	}
}
