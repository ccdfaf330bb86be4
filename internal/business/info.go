// Package business holds the static salon facts the agent can answer from
// directly: hours, location, contact and services.
package business

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Info describes the business, loaded once at startup from a JSON file
// curated alongside the phrase table.
type Info struct {
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Hours    string   `json:"hours"`
	Phone    string   `json:"phone"`
	Services []string `json:"services"`
}

// LoadInfo reads the business info JSON file.
func LoadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read business info: %w", err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse business info: %w", err)
	}
	return &info, nil
}

// Answer checks the utterance against the fixed keyword lookups, in order:
// hours, location, contact, services. The first containment hit wins.
// ok is false when nothing matched.
func (i *Info) Answer(utterance string) (reply string, ok bool) {
	q := strings.ToLower(utterance)

	switch {
	case strings.Contains(q, "hours"):
		return fmt.Sprintf("Our hours are %s.", i.Hours), true
	case strings.Contains(q, "address") || strings.Contains(q, "location"):
		return fmt.Sprintf("We are located at %s.", i.Address), true
	case strings.Contains(q, "phone") || strings.Contains(q, "contact"):
		return fmt.Sprintf("You can reach us at %s.", i.Phone), true
	case strings.Contains(q, "services") || strings.Contains(q, "offer"):
		return fmt.Sprintf("At %s, we offer %s.", i.Name, strings.Join(i.Services, ", ")), true
	}
	return "", false
}
