package entities

import "fmt"

// Resource is one of the six shared pools. Gold is the only one with a private fallback.
type Resource int

const (
	Gold Resource = iota
	Antimatter
	Combustion
	Death
	Life
	Quintessence

	ResourceCount = iota
)

var resourceNames = [ResourceCount]string{
	Gold:         "gold",
	Antimatter:   "antimatter",
	Combustion:   "combustion",
	Death:        "death",
	Life:         "life",
	Quintessence: "quintessence",
}

// Resources lists every shared pool in storage order.
func Resources() []Resource {
	out := make([]Resource, ResourceCount)
	for i := range out {
		out[i] = Resource(i)
	}
	return out
}

func (r Resource) String() string {
	if r < 0 || int(r) >= ResourceCount {
		return fmt.Sprintf("resource(%d)", int(r))
	}
	return resourceNames[r]
}

func (r Resource) Valid() bool {
	return r >= 0 && int(r) < ResourceCount
}

// ParseResource maps a cost-unit name back to its Resource.
func ParseResource(name string) (Resource, error) {
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", name)
}

func (r Resource) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid resource %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Resource) UnmarshalText(text []byte) error {
	parsed, err := ParseResource(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Side identifies one of the two economic actors of a battle.
type Side int

const (
	Primary Side = iota
	Secondary

	SideCount = iota
)

func (s Side) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == Primary {
		return Secondary
	}
	return Primary
}

func (s Side) Valid() bool {
	return s == Primary || s == Secondary
}

func ParseSide(name string) (Side, error) {
	switch name {
	case "primary", "player":
		return Primary, nil
	case "secondary", "opponent":
		return Secondary, nil
	}
	return 0, fmt.Errorf("unknown side %q", name)
}

func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid side %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
