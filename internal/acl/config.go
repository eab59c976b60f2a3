package acl

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrConfig indicates a malformed role configuration. Builds never produce a
// partial registry: the first configuration fault aborts the whole build.
var ErrConfig = errors.New("acl: invalid role configuration")

// RuleGroups maps an effect keyword ("allow" or "deny") to privilege
// identifiers. Keys other than the two supported effects are a configuration
// error, surfaced at build time.
type RuleGroups map[string][]string

// RoleDecl is one role declaration from the configuration document.
//
// Declarations are an ordered list, not a map: parent resolution depends on
// configuration order (parents are expected to be declared before children).
type RoleDecl struct {
	Ident     string                `koanf:"ident"`
	Parent    string                `koanf:"parent"`
	Superuser bool                  `koanf:"is_superuser"`
	Resources map[string]RuleGroups `koanf:"resources"`
	Global    RuleGroups            `koanf:"global"`
}

// Config is the declarative role configuration consumed by Build.
type Config struct {
	DefaultRole string     `koanf:"default_role"`
	Roles       []RoleDecl `koanf:"roles"`
}

// LoadConfig reads a role configuration from a YAML document on disk.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("%w: load %s: %v", ErrConfig, path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	return cfg, nil
}
