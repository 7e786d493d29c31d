package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules that span several
// sections.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationErrors(err)
	}
	if err := validateStore(&cfg.Store); err != nil {
		return err
	}
	if err := validateCache(cfg); err != nil {
		return err
	}
	return validateIdentity(cfg)
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed '%s' validation", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s=%s)", fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

func validateStore(cfg *StoreConfig) error {
	switch cfg.Type {
	case StoreTypeYAML:
		if cfg.YAML.Dir == "" {
			return errors.New("store.yaml.dir is required for the yaml store")
		}
	case StoreTypeSQLite, StoreTypePostgres:
		if err := cfg.Database().Validate(); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	if cfg.YAML.Watch && cfg.Type != StoreTypeYAML {
		return fmt.Errorf("store.yaml.watch requires the yaml store, got %s", cfg.Type)
	}
	return nil
}

func validateCache(cfg *Config) error {
	p := cfg.Cache.Persisted
	if !p.Enabled {
		return nil
	}
	if !p.InMemory && p.Path == "" {
		return errors.New("cache.persisted.path is required unless in_memory is set")
	}
	if cfg.Store.Type == StoreTypeMemory {
		return errors.New("cache.persisted cannot wrap the memory store")
	}
	return nil
}

func validateIdentity(cfg *Config) error {
	id := cfg.Identity
	if id.Type == IdentityTypeStore {
		if cfg.Store.Type != StoreTypeSQLite && cfg.Store.Type != StoreTypePostgres {
			return fmt.Errorf("identity type store requires a sqlite or postgres store, got %s", cfg.Store.Type)
		}
		if len(id.Users) > 0 {
			return errors.New("identity.users is only used by the static identity type")
		}
	}

	seen := make(map[string]struct{}, len(id.Users))
	for i, u := range id.Users {
		if u.Name == "" {
			return fmt.Errorf("identity.users[%d]: username is required", i)
		}
		if _, dup := seen[u.Name]; dup {
			return fmt.Errorf("identity.users[%d]: duplicate username %q", i, u.Name)
		}
		seen[u.Name] = struct{}{}
		if u.Internal {
			return fmt.Errorf("identity.users[%d]: internal users cannot be configured", i)
		}
	}
	return nil
}
