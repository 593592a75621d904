package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/sei-protocol/ckanpatch/entity"
	"github.com/sei-protocol/ckanpatch/store"
)

// kindHints maps top-level keys of a patch document to the entity kind they belong to.
var kindHints = map[string]entity.Kind{
	// Dataset fields
	"resources":        entity.Dataset,
	"notes":            entity.Dataset,
	"owner_org":        entity.Dataset,
	"license_id":       entity.Dataset,
	"author":           entity.Dataset,
	"author_email":     entity.Dataset,
	"maintainer":       entity.Dataset,
	"maintainer_email": entity.Dataset,
	"tags":             entity.Dataset,
	"extras":           entity.Dataset,
	"private":          entity.Dataset,
	"version":          entity.Dataset,

	// Resource fields
	"url":              entity.Resource,
	"package_id":       entity.Resource,
	"format":           entity.Resource,
	"mimetype":         entity.Resource,
	"hash":             entity.Resource,
	"size":             entity.Resource,
	"resource_type":    entity.Resource,
	"last_modified":    entity.Resource,
	"datastore_active": entity.Resource,

	// Organization fields
	"is_organization": entity.Organization,
	"approval_status": entity.Organization,

	// User fields
	"email":         entity.User,
	"fullname":      entity.User,
	"about":         entity.User,
	"sysadmin":      entity.User,
	"password":      entity.User,
	"plugin_extras": entity.User,
}

// detectKind determines the kind a patch applies to from its top-level keys.
func detectKind(patch entity.Document) (entity.Kind, error) {
	var kind entity.Kind
	for key := range patch {
		switch hint, found := kindHints[key]; {
		case !found:
			// Shared or unknown keys; the other keys decide.
			continue
		case kind == "":
			kind = hint
		case kind != hint:
			// Multiple matching hints; not OK for safety reasons.
			return "", fmt.Errorf("patch is applicable to at least two entity kinds (%s, %s); set --kind explicitly", kind, hint)
		}
	}
	if kind == "" {
		return "", errors.New("entity kind could not be detected; it must be set with --kind")
	}
	return kind, nil
}

type config struct {
	Store struct {
		Driver string         `toml:"driver"`
		Path   string         `toml:"path"`
		S3     store.S3Config `toml:"s3"`
	} `toml:"store"`
	API struct {
		URL     string `toml:"url"`
		APIKey  string `toml:"api-key"`
		Timeout string `toml:"timeout"`
	} `toml:"api"`
	Caller struct {
		User       string `toml:"user"`
		Session    string `toml:"session"`
		IgnoreAuth bool   `toml:"ignore-auth"`
	} `toml:"caller"`
	Access struct {
		AllowedUsers []string `toml:"allowed-users"`
	} `toml:"access"`
}

func (c config) apiTimeout() (time.Duration, error) {
	if c.API.Timeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parsing api.timeout: %w", err)
	}
	return d, nil
}

func (c config) caller() entity.Caller {
	return entity.Caller{
		Session:    c.Caller.Session,
		User:       c.Caller.User,
		IgnoreAuth: c.Caller.IgnoreAuth,
	}
}

func homeDir() (string, error) {
	if destinations.home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		destinations.home = filepath.Clean(filepath.Join(userHome, ".ckanpatch"))
	}
	return destinations.home, nil
}

// loadConfig reads config.toml from the home directory and applies flag overrides.
// A missing file yields the defaults: a SQLite store in the home directory.
func loadConfig() (config, error) {
	var cfg config
	home, err := homeDir()
	if err != nil {
		return cfg, err
	}
	configPath := filepath.Join(home, "config.toml")
	configBytes, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config file: %w", err)
	default:
		if err := toml.Unmarshal(configBytes, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(home, "ckanpatch.db")
	}
	if destinations.user != "" {
		cfg.Caller.User = destinations.user
	}
	if destinations.ignoreAuth {
		cfg.Caller.IgnoreAuth = true
	}
	return cfg, nil
}
