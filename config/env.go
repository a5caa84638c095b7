package config

import (
	"os"
	"strings"
)

// Environment is the deployment the process runs in, taken from ENV
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// DetectEnvironment reads ENV; CI=true takes precedence.
func DetectEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("ENV"))) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

func (e Environment) IsProduction() bool {
	return e == Production
}
