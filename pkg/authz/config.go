package authz

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Policy grants Permission to Subject.
type Policy struct {
	Subject    string
	Permission string
}

// Grouping makes Member inherit every permission of Parent.
type Grouping struct {
	Member string
	Parent string
}

// Config captures all inputs necessary to initialize the Casbin enforcer.
// An empty ModelPath selects the built-in model; an empty PolicyPath loads
// Policies and Groupings instead of a policy file.
type Config struct {
	ModelPath    string
	PolicyPath   string
	Policies     []Policy
	Groupings    []Grouping
	FlagPath     string
	FlagMode     Mode
	Logger       *logrus.Logger
	FlagProvider FlagProvider
}

func (c Config) validate() error {
	if c.PolicyPath == "" && len(c.Policies) == 0 {
		return configError("missing policy path and no inline policies")
	}
	for _, p := range c.Policies {
		if p.Subject == "" || p.Permission == "" {
			return configError("inline policy with empty subject or permission: %+v", p)
		}
	}
	return nil
}

func (c Config) normalized() Config {
	if c.ModelPath != "" {
		c.ModelPath = filepath.Clean(c.ModelPath)
	}
	if c.PolicyPath != "" {
		c.PolicyPath = filepath.Clean(c.PolicyPath)
	}
	if c.FlagPath != "" {
		c.FlagPath = filepath.Clean(c.FlagPath)
	}
	if c.FlagMode == "" {
		c.FlagMode = ModeEnforce
	}
	return c
}
