// Package catalog stores meals and the tags used to categorize them.
package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNameRequired = errors.New("name is required")
	ErrUnknownTag   = errors.New("unknown tag")
)

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Meal struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Tags      []Tag     `json:"tags"`
}

// TagNames returns the names of the meal's tags.
func (m *Meal) TagNames() []string {
	names := make([]string, len(m.Tags))
	for i, t := range m.Tags {
		names[i] = t.Name
	}
	return names
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	return name, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
