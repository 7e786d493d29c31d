package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
)

// YAMLExtension is the suffix of project files in a YAMLStore directory.
const YAMLExtension = ".yaml"

// YAMLStore keeps one YAML file per project under a directory. A project
// named "platform/api" lives in <dir>/platform/api.yaml.
//
// Revisions are name-based UUIDs of the file content, so an edit made by
// hand is picked up like one made through Commit.
type YAMLStore struct {
	dir string
	mu  sync.Mutex
}

// yamlProject is the on-disk layout. Rules use their textual form, with
// groups referenced by name and resolved through Groups.
type yamlProject struct {
	Parent      string              `yaml:"parent,omitempty"`
	Description string              `yaml:"description,omitempty"`
	State       string              `yaml:"state,omitempty"`
	Groups      map[string]string   `yaml:"groups,omitempty"`
	Access      []yamlSection       `yaml:"access,omitempty"`
	Labels      []*access.LabelType `yaml:"labels,omitempty"`
}

type yamlSection struct {
	Ref         string           `yaml:"ref"`
	Permissions []yamlPermission `yaml:"permissions,omitempty"`
}

type yamlPermission struct {
	Name      string   `yaml:"name"`
	Exclusive bool     `yaml:"exclusive,omitempty"`
	Rules     []string `yaml:"rules,omitempty"`
}

// NewYAMLStore opens dir, creating it if needed.
func NewYAMLStore(dir string) (*YAMLStore, error) {
	if dir == "" {
		return nil, errors.New("yaml store directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}
	return &YAMLStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *YAMLStore) Dir() string { return s.dir }

func (s *YAMLStore) path(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(name)+YAMLExtension)
}

// ProjectName maps a file path under the store directory back to its
// project name. ok is false for files that are not project files.
func (s *YAMLStore) ProjectName(path string) (string, bool) {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") || !strings.HasSuffix(rel, YAMLExtension) {
		return "", false
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, YAMLExtension)), true
}

func contentRevision(data []byte) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, data).String()
}

func (s *YAMLStore) read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return data, err
}

func (s *YAMLStore) Load(_ context.Context, name string) (*access.ProjectConfig, error) {
	data, err := s.read(name)
	if err != nil {
		return nil, err
	}
	cfg, err := DecodeYAML(name, data)
	if err != nil {
		return nil, err
	}
	cfg.Revision = contentRevision(data)
	return cfg, nil
}

func (s *YAMLStore) Revision(_ context.Context, name string) (string, error) {
	data, err := s.read(name)
	if err != nil {
		return "", err
	}
	return contentRevision(data), nil
}

func (s *YAMLStore) List(context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if name, ok := s.ProjectName(path); ok {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return names, nil
}

func (s *YAMLStore) Create(_ context.Context, cfg *access.ProjectConfig) error {
	if err := checkCommit(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path(cfg.Name)); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateProject, cfg.Name)
	}
	_, err := s.write(cfg)
	return err
}

func (s *YAMLStore) Commit(_ context.Context, cfg *access.ProjectConfig, expectedRevision, _ string) (string, error) {
	if err := checkCommit(cfg); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read(cfg.Name)
	if err != nil {
		return "", err
	}
	if cur := contentRevision(data); expectedRevision != "" && cur != expectedRevision {
		return "", &StaleRevisionError{Project: cfg.Name, Expected: expectedRevision, Actual: cur}
	}
	return s.write(cfg)
}

func (s *YAMLStore) SetParent(_ context.Context, child, parent string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read(child)
	if err != nil {
		return "", err
	}
	cfg, err := DecodeYAML(child, data)
	if err != nil {
		return "", err
	}
	cfg.Parent = parent
	return s.write(cfg)
}

func (s *YAMLStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return err
}

func (s *YAMLStore) Rename(ctx context.Context, oldName, newName string) error {
	names, err := s.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(names, newName) {
		return fmt.Errorf("%w: %s", ErrDuplicateProject, newName)
	}
	data, err := s.read(oldName)
	if err != nil {
		return err
	}
	cfg, err := DecodeYAML(newName, data)
	if err != nil {
		return err
	}
	if _, err := s.write(cfg); err != nil {
		return err
	}
	if err := os.Remove(s.path(oldName)); err != nil {
		return err
	}

	for _, n := range names {
		if n == oldName {
			continue
		}
		data, err := s.read(n)
		if err != nil {
			return err
		}
		child, err := DecodeYAML(n, data)
		if err != nil {
			return err
		}
		if child.Parent == oldName {
			child.Parent = newName
			if _, err := s.write(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *YAMLStore) Close() error { return nil }

// write encodes cfg to its file through a temporary file and returns the
// new revision. Callers hold s.mu.
func (s *YAMLStore) write(cfg *access.ProjectConfig) (string, error) {
	data, err := EncodeYAML(cfg)
	if err != nil {
		return "", err
	}
	path := s.path(cfg.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".refperm-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return contentRevision(data), nil
}

// DecodeYAML parses a project file. Group names in rules are resolved
// through the file's groups table, then the system group names; anything
// else is taken to be a UUID.
func DecodeYAML(name string, data []byte) (*access.ProjectConfig, error) {
	var doc yamlProject
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	status, err := access.ParseProjectStatus(doc.State)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	cfg := &access.ProjectConfig{
		Name:        name,
		Parent:      doc.Parent,
		Description: doc.Description,
		Status:      status,
		LabelTypes:  doc.Labels,
	}

	systemByName := make(map[string]access.GroupUUID, len(identity.SystemGroups))
	for id, n := range identity.SystemGroups {
		systemByName[n] = id
	}
	resolve := func(g access.GroupReference) access.GroupReference {
		if id, ok := doc.Groups[g.Name]; ok {
			return access.GroupReference{UUID: access.GroupUUID(id), Name: g.Name}
		}
		if id, ok := systemByName[g.Name]; ok {
			return access.GroupReference{UUID: id, Name: g.Name}
		}
		return access.GroupReference{UUID: access.GroupUUID(g.Name), Name: g.Name}
	}

	var errs []error
	for _, ys := range doc.Access {
		section := access.NewAccessSection(ys.Ref)
		for _, yp := range ys.Permissions {
			p := access.NewPermission(yp.Name)
			p.ExclusiveGroup = yp.Exclusive
			for _, text := range yp.Rules {
				r, err := access.ParseRule(text)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s %s: %w", ys.Ref, yp.Name, err))
					continue
				}
				r.Group = resolve(r.Group)
				p.Add(r)
			}
			section.AddPermission(p)
		}
		cfg.AccessSections = append(cfg.AccessSections, section)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("parse %s: %w", name, errors.Join(errs...))
	}
	return cfg, nil
}

// EncodeYAML renders cfg in the project file layout.
func EncodeYAML(cfg *access.ProjectConfig) ([]byte, error) {
	doc := yamlProject{
		Parent:      cfg.Parent,
		Description: cfg.Description,
		Labels:      cfg.LabelTypes,
	}
	if st := cfg.EffectiveStatus(); st != access.StatusActive {
		doc.State = string(st)
	}

	for _, s := range cfg.AccessSections {
		ys := yamlSection{Ref: s.Name}
		for _, p := range s.Permissions {
			yp := yamlPermission{Name: p.Name, Exclusive: p.ExclusiveGroup}
			for _, r := range p.Rules {
				yp.Rules = append(yp.Rules, r.String())
				if r.Group.Name != "" && r.Group.UUID != "" &&
					string(r.Group.UUID) != r.Group.Name && !identity.IsSystemGroup(r.Group.UUID) {
					if doc.Groups == nil {
						doc.Groups = make(map[string]string)
					}
					doc.Groups[r.Group.Name] = string(r.Group.UUID)
				}
			}
			ys.Permissions = append(ys.Permissions, yp)
		}
		doc.Access = append(doc.Access, ys)
	}
	return yaml.Marshal(&doc)
}
