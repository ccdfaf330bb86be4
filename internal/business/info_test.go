package business

import (
	"os"
	"path/filepath"
	"testing"
)

var testInfo = &Info{
	Name:     "Veluxe Beauty Lounge",
	Address:  "123 Main Street, Springfield",
	Hours:    "9am to 7pm, Monday through Saturday",
	Phone:    "(555) 010-2233",
	Services: []string{"haircuts", "coloring", "manicures"},
}

func TestAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		utterance string
		want      string
		ok        bool
	}{
		{
			name:      "hours",
			utterance: "What are your hours?",
			want:      "Our hours are 9am to 7pm, Monday through Saturday.",
			ok:        true,
		},
		{
			name:      "location keyword",
			utterance: "where is your location",
			want:      "We are located at 123 Main Street, Springfield.",
			ok:        true,
		},
		{
			name:      "contact",
			utterance: "How do I contact you?",
			want:      "You can reach us at (555) 010-2233.",
			ok:        true,
		},
		{
			name:      "services",
			utterance: "what services do you have",
			want:      "At Veluxe Beauty Lounge, we offer haircuts, coloring, manicures.",
			ok:        true,
		},
		{
			name:      "hours wins over services",
			utterance: "what hours do you offer services",
			want:      "Our hours are 9am to 7pm, Monday through Saturday.",
			ok:        true,
		},
		{
			name:      "no match",
			utterance: "can I get a refund",
			ok:        false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := testInfo.Answer(tt.utterance)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadInfo(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "salon.json")
	body := `{"name":"Test Salon","address":"1 Side St","hours":"10am to 4pm","phone":"555-0000","services":["waxing"]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	info, err := LoadInfo(path)
	if err != nil {
		t.Fatalf("LoadInfo: %v", err)
	}
	if info.Name != "Test Salon" || len(info.Services) != 1 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestLoadInfoErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadInfo(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file: want error")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadInfo(bad); err == nil {
		t.Error("malformed json: want error")
	}
}
