package worker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"callguard/internal/domain/entity"
)

// contactsFile is the YAML document CALLS_FILE points at:
//
//	contacts:
//	  - id: 1
//	    name: Alice Johnson
//	    phone: "+1 555 010 1001"
type contactsFile struct {
	Contacts []contactEntry `yaml:"contacts"`
}

type contactEntry struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

// LoadContacts reads the outbound batch from the given YAML file. An empty
// path selects the built-in demo batch so the worker runs out of the box.
// Every contact is validated on load; a bad entry fails the whole file so
// operators hear about typos before the scheduler fires.
func LoadContacts(path string) ([]*entity.Contact, error) {
	if path == "" {
		return defaultContacts(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is provided by trusted source (env var or config), not user input
	if err != nil {
		return nil, fmt.Errorf("failed to read calls file: %w", err)
	}

	var doc contactsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse calls file: %w", err)
	}

	if len(doc.Contacts) == 0 {
		return nil, fmt.Errorf("calls file %q contains no contacts", path)
	}

	contacts := make([]*entity.Contact, 0, len(doc.Contacts))
	for i, entry := range doc.Contacts {
		contact := &entity.Contact{
			ID:    entry.ID,
			Name:  entry.Name,
			Phone: entry.Phone,
		}
		if err := entity.ValidateContact(contact); err != nil {
			return nil, fmt.Errorf("calls file %q entry %d: %w", path, i, err)
		}
		contacts = append(contacts, contact)
	}

	return contacts, nil
}

// defaultContacts is the demo batch used when no CALLS_FILE is configured.
func defaultContacts() []*entity.Contact {
	return []*entity.Contact{
		{ID: 1, Name: "Alice Johnson", Phone: "+1 555 010 1001"},
		{ID: 2, Name: "Bob Rivera", Phone: "+1 555 010 1002"},
		{ID: 3, Name: "Carol Tanaka", Phone: "+81 3 5550 1003"},
	}
}
