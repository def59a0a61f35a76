package automation

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Destination names where an automation stores its data. When ID is set it
// takes precedence and name search must not be attempted, so that two
// objects sharing a display name cannot be confused.
type Destination struct {
	ID   string
	Name string
}

func (d Destination) Empty() bool {
	return d.ID == "" && d.Name == ""
}

// Descriptor is a user-authored rule pairing source-site patterns, fields to
// collect, and a destination. It is immutable per pipeline invocation.
type Descriptor struct {
	ID            string
	OwnerID       string
	Title         string
	Sources       string // comma-delimited domain patterns
	ExtractFields string // comma-delimited field names or a free-form intent
	Destination   Destination
	Active        bool
	UpdatedAt     time.Time
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return errors.New("automation title is required")
	}
	if strings.TrimSpace(d.ExtractFields) == "" {
		return errors.New("automation extract fields are required")
	}
	if d.Destination.Empty() {
		return errors.New("automation destination is required")
	}
	return nil
}

// SplitFields parses the extract-fields spec into individual field names.
// A free-form intent with no commas comes back as a single name.
func SplitFields(spec string) []string {
	var out []string
	for _, part := range strings.Split(spec, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Repository hands out the automations owned by a user. Storage and locking
// discipline belong to the implementation, not to the pipeline.
type Repository interface {
	GetAutomations(ctx context.Context, ownerID string) ([]Descriptor, error)
}
