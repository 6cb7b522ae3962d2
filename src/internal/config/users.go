// FILE: src/internal/config/users.go
package config

// UserConfig is a static SCRAM credential. Binary fields are standard base64.
type UserConfig struct {
	Username   string `toml:"username"`
	Salt       string `toml:"salt"`
	Iterations int    `toml:"iterations"`
	StoredKey  string `toml:"stored_key"`
	ServerKey  string `toml:"server_key"`
}

// UpsertUser replaces the entry for u.Username or appends it.
func (c *Config) UpsertUser(u UserConfig) {
	for i := range c.Users {
		if c.Users[i].Username == u.Username {
			c.Users[i] = u
			return
		}
	}
	c.Users = append(c.Users, u)
}
