package agents

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownRole  = errors.New("unknown role")
	ErrUnknownClass = errors.New("unknown decision class")
)

type Role string

const (
	RoleController Role = "pacman"
	RoleAdversary  Role = "ghost"
)

// ParseRole accepts the wire names and their generic aliases.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "pacman", "controller":
		return RoleController, nil
	case "ghost", "adversary":
		return RoleAdversary, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) Valid() bool {
	return r == RoleController || r == RoleAdversary
}

// Class is a decision behaviour the agent host can instantiate.
type Class struct {
	Name string
	// Learning classes own a policy and report behaviour counts.
	Learning bool
}

var classes = map[Role]map[string]Class{
	RoleController: {
		"random": {Name: "random"},
		"ai":     {Name: "ai", Learning: true},
		"eater":  {Name: "eater"},
	},
	RoleAdversary: {
		"random": {Name: "random"},
		"ai":     {Name: "ai", Learning: true},
	},
}

// LookupClass resolves a class name for a role.
func LookupClass(role Role, name string) (Class, error) {
	byName, ok := classes[role]
	if !ok {
		return Class{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	c, ok := byName[strings.ToLower(name)]
	if !ok {
		return Class{}, fmt.Errorf("%w: %s agent must be one of %s", ErrUnknownClass, role, strings.Join(ClassNames(role), ", "))
	}
	return c, nil
}

// ClassNames lists the classes available to role in a stable order.
func ClassNames(role Role) []string {
	if role == RoleController {
		return []string{"random", "ai", "eater"}
	}
	return []string{"random", "ai"}
}
