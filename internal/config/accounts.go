package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"panelkeeper/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadAccounts reads the account list at path. Files ending in .yaml or
// .yml are parsed as YAML, anything else as a JSON array. ${VAR} and
// ${VAR:-default} placeholders are expanded from the environment first,
// so passwords can stay out of the file.
func LoadAccounts(path string) ([]domain.Account, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read account list %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	var accounts []domain.Account
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &accounts)
	default:
		err = json.Unmarshal(data, &accounts)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse account list %s: %w", path, err)
	}

	if err := ValidateAccounts(accounts); err != nil {
		return nil, fmt.Errorf("account list %s: %w", path, err)
	}
	return accounts, nil
}

// ValidateAccounts checks that every entry carries a username and a panel.
// Passwords may legitimately be empty and are not checked. An empty list
// is valid: the run simply has nothing to do.
func ValidateAccounts(accounts []domain.Account) error {
	var errs []string
	for i, a := range accounts {
		if strings.TrimSpace(a.Username) == "" {
			errs = append(errs, fmt.Sprintf("accounts[%d]: username is required", i))
		}
		if strings.TrimSpace(a.Panel) == "" {
			errs = append(errs, fmt.Sprintf("accounts[%d]: panel is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty; an unset
// variable without a default is left as written.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, ok := os.LookupEnv(groups[1])
		if !ok || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// ExpandPath resolves a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
