// FILE: src/internal/credstore/export.go
package credstore

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"scramwisp/src/internal/config"
	"scramwisp/src/internal/scram"
)

// exportDoc mirrors the users section of the config file.
type exportDoc struct {
	Users []exportUser `toml:"users" yaml:"users"`
}

type exportUser struct {
	Username   string `toml:"username" yaml:"username"`
	Salt       string `toml:"salt" yaml:"salt"`
	Iterations int    `toml:"iterations" yaml:"iterations"`
	StoredKey  string `toml:"stored_key" yaml:"stored_key"`
	ServerKey  string `toml:"server_key" yaml:"server_key"`
}

// Export renders credentials as a config snippet in "toml" or "yaml".
func Export(format string, creds ...*scram.Credential) ([]byte, error) {
	doc := exportDoc{Users: make([]exportUser, 0, len(creds))}
	for _, cred := range creds {
		u := ToUserConfig(cred)
		doc.Users = append(doc.Users, exportUser(u))
	}

	var buf bytes.Buffer
	switch format {
	case "toml", "":
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	return buf.Bytes(), nil
}

// Import parses a snippet produced by Export.
func Import(format string, data []byte) ([]config.UserConfig, error) {
	var doc exportDoc
	switch format {
	case "toml", "":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported import format: %s", format)
	}

	users := make([]config.UserConfig, 0, len(doc.Users))
	for _, u := range doc.Users {
		users = append(users, config.UserConfig(u))
	}
	return users, nil
}
