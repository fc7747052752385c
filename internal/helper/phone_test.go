package helper

import (
	"reflect"
	"testing"
)

func TestNormalizeRecipient(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"59171234567", "59171234567"},
		{"+591 7123-4567", "59171234567"},
		{"(591) 7123 4567", "59171234567"},
		{"071234567", "071234567"},
	}
	for _, tt := range tests {
		got, err := NormalizeRecipient(tt.in)
		if err != nil {
			t.Fatalf("NormalizeRecipient(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeRecipient(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeRecipientRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "abc", "+-()"} {
		if _, err := NormalizeRecipient(in); err == nil {
			t.Errorf("NormalizeRecipient(%q) expected error", in)
		}
	}
}

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"59171234567", "+59171234567@s.whatsapp.net"},
		{"0059171234567", "+59171234567@s.whatsapp.net"},
		{"+591 7123 4567", "+59171234567@s.whatsapp.net"},
		{"+59171234567@s.whatsapp.net", "+59171234567@s.whatsapp.net"},
	}
	for _, tt := range tests {
		if got := FormatPhoneNumber(tt.in); got != tt.want {
			t.Errorf("FormatPhoneNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractPhoneCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain number", "Maria +591 7123-4567", []string{"59171234567"}},
		{"two numbers", "Ventas 59171234567 / 59176543210", []string{"59171234567", "59176543210"}},
		{"no numbers", "Juan Perez", nil},
		{"short run ignored", "Piso 3 depto 1204", nil},
		{"duplicate collapsed", "59171234567 59171234567", []string{"59171234567"}},
		{"adjacent numbers split", "Soporte 59171234567 59176543210", []string{"59171234567", "59176543210"}},
		{"number with inner spaces", "+591 71234 567", []string{"59171234567"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPhoneCandidates(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractPhoneCandidates(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractPhoneFromJID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"59171234567@s.whatsapp.net", "59171234567"},
		{"59171234567:43@s.whatsapp.net", "59171234567"},
		{"59171234567", "59171234567"},
	}
	for _, tt := range tests {
		if got := ExtractPhoneFromJID(tt.in); got != tt.want {
			t.Errorf("ExtractPhoneFromJID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
