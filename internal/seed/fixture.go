package seed

import (
	"fmt"
	"os"

	"creaza/internal/validation"

	"gopkg.in/yaml.v3"
)

// Fixture is a hand-written set of users and pins loaded before the
// generated data.
//
//	users:
//	  - username: ana
//	    email: ana@example.com
//	pins:
//	  - owner: ana
//	    title: Cerro al amanecer
//	    category: photography
//	    tags: [paisaje]
type Fixture struct {
	Users []FixtureUser `yaml:"users" validate:"dive"`
	Pins  []FixturePin  `yaml:"pins" validate:"dive"`
}

// FixtureUser describes one profile. Email defaults to <username>@example.com.
type FixtureUser struct {
	Username    string `yaml:"username" validate:"required,handle"`
	Email       string `yaml:"email" validate:"omitempty,email"`
	DisplayName string `yaml:"display_name"`
	Bio         string `yaml:"bio"`
	Avatar      string `yaml:"avatar" validate:"omitempty,url"`
}

// FixturePin describes one pin owned by a fixture user.
type FixturePin struct {
	Owner       string   `yaml:"owner" validate:"required"`
	Title       string   `yaml:"title" validate:"required"`
	Description string   `yaml:"description"`
	Image       string   `yaml:"image" validate:"omitempty,url"`
	Category    string   `yaml:"category" validate:"required,category"`
	Tags        []string `yaml:"tags"`
}

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture and checks every pin has a known owner.
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := validation.Struct(&fx); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}

	owners := make(map[string]bool, len(fx.Users))
	for _, u := range fx.Users {
		if owners[u.Username] {
			return nil, fmt.Errorf("invalid fixture: duplicate username %q", u.Username)
		}
		owners[u.Username] = true
	}
	for i, p := range fx.Pins {
		if !owners[p.Owner] {
			return nil, fmt.Errorf("invalid fixture: pin %d has unknown owner %q", i, p.Owner)
		}
	}
	return &fx, nil
}
