package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/refperm/pkg/access"
)

// projectRow is one project and its header fields.
type projectRow struct {
	Name        string    `gorm:"primaryKey;size:255"`
	Parent      string    `gorm:"size:255;index"`
	Description string    `gorm:"size:1024"`
	State       string    `gorm:"size:32"`
	Revision    string    `gorm:"not null;size:36"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Sections []sectionRow `gorm:"foreignKey:Project;references:Name;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Labels   []labelRow   `gorm:"foreignKey:Project;references:Name;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (projectRow) TableName() string { return "projects" }

type sectionRow struct {
	ID       string `gorm:"primaryKey;size:36"`
	Project  string `gorm:"not null;size:255;index"`
	Position int    `gorm:"not null"`
	Pattern  string `gorm:"not null;size:1024"`

	Permissions []permissionRow `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
}

func (sectionRow) TableName() string { return "access_sections" }

type permissionRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	SectionID string `gorm:"not null;size:36;index"`
	Position  int    `gorm:"not null"`
	Name      string `gorm:"not null;size:255"`
	Exclusive bool

	Rules []ruleRow `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}

func (permissionRow) TableName() string { return "permissions" }

type ruleRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	PermissionID string `gorm:"not null;size:36;index"`
	Position     int    `gorm:"not null"`
	GroupUUID    string `gorm:"size:255"`
	GroupName    string `gorm:"size:255"`
	Action       string `gorm:"not null;size:16"`
	Force        bool
	Min          int
	Max          int
}

func (ruleRow) TableName() string { return "permission_rules" }

type labelRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Project      string `gorm:"not null;size:255;index"`
	Position     int    `gorm:"not null"`
	Name         string `gorm:"not null;size:255"`
	Function     string `gorm:"size:32"`
	DefaultValue int

	Values []labelValueRow `gorm:"foreignKey:LabelID;constraint:OnDelete:CASCADE"`
}

func (labelRow) TableName() string { return "label_types" }

type labelValueRow struct {
	ID      string `gorm:"primaryKey;size:36"`
	LabelID string `gorm:"not null;size:36;index"`
	Value   int    `gorm:"not null"`
	Text    string `gorm:"size:255"`
}

func (labelValueRow) TableName() string { return "label_values" }

// accountRow is a user account.
type accountRow struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	Username  string    `gorm:"uniqueIndex;not null;size:255"`
	Admin     bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Emails []accountEmailRow `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

func (accountRow) TableName() string { return "accounts" }

type accountEmailRow struct {
	AccountID int    `gorm:"primaryKey"`
	Email     string `gorm:"primaryKey;size:255"`
}

func (accountEmailRow) TableName() string { return "account_emails" }

// groupRow is an internal group. System groups are never stored.
type groupRow struct {
	UUID        string    `gorm:"primaryKey;size:255"`
	Name        string    `gorm:"uniqueIndex;not null;size:255"`
	Description string    `gorm:"size:1024"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (groupRow) TableName() string { return "groups" }

// groupMemberRow links a group to either an account or an included group.
type groupMemberRow struct {
	ID          uint   `gorm:"primaryKey"`
	GroupUUID   string `gorm:"not null;size:255;index"`
	AccountID   *int   `gorm:"index"`
	IncludeUUID string `gorm:"size:255"`
}

func (groupMemberRow) TableName() string { return "group_members" }

func allModels() []any {
	return []any{
		&projectRow{},
		&sectionRow{},
		&permissionRow{},
		&ruleRow{},
		&labelRow{},
		&labelValueRow{},
		&accountRow{},
		&accountEmailRow{},
		&groupRow{},
		&groupMemberRow{},
	}
}

// toRows converts cfg into rows with fresh IDs. Positions preserve order.
func toRows(cfg *access.ProjectConfig, revision string) *projectRow {
	row := &projectRow{
		Name:        cfg.Name,
		Parent:      cfg.Parent,
		Description: cfg.Description,
		State:       string(cfg.EffectiveStatus()),
		Revision:    revision,
	}
	for i, s := range cfg.AccessSections {
		sr := sectionRow{ID: uuid.NewString(), Project: cfg.Name, Position: i, Pattern: s.Name}
		for j, p := range s.Permissions {
			pr := permissionRow{ID: uuid.NewString(), SectionID: sr.ID, Position: j, Name: p.Name, Exclusive: p.ExclusiveGroup}
			for k, r := range p.Rules {
				pr.Rules = append(pr.Rules, ruleRow{
					ID:           uuid.NewString(),
					PermissionID: pr.ID,
					Position:     k,
					GroupUUID:    string(r.Group.UUID),
					GroupName:    r.Group.Name,
					Action:       string(r.Action),
					Force:        r.Force,
					Min:          r.Min,
					Max:          r.Max,
				})
			}
			sr.Permissions = append(sr.Permissions, pr)
		}
		row.Sections = append(row.Sections, sr)
	}
	for i, l := range cfg.LabelTypes {
		lr := labelRow{ID: uuid.NewString(), Project: cfg.Name, Position: i, Name: l.Name, Function: string(l.Function), DefaultValue: l.DefaultValue}
		for v, text := range l.Values {
			lr.Values = append(lr.Values, labelValueRow{ID: uuid.NewString(), LabelID: lr.ID, Value: v, Text: text})
		}
		row.Labels = append(row.Labels, lr)
	}
	return row
}

// toConfig converts a fully preloaded row back into a config.
func (row *projectRow) toConfig() *access.ProjectConfig {
	cfg := &access.ProjectConfig{
		Name:        row.Name,
		Parent:      row.Parent,
		Description: row.Description,
		Status:      access.ProjectStatus(row.State),
		Revision:    row.Revision,
	}
	for _, sr := range row.Sections {
		s := access.NewAccessSection(sr.Pattern)
		for _, pr := range sr.Permissions {
			p := access.NewPermission(pr.Name)
			p.ExclusiveGroup = pr.Exclusive
			for _, rr := range pr.Rules {
				p.Rules = append(p.Rules, &access.Rule{
					Group:  access.GroupReference{UUID: access.GroupUUID(rr.GroupUUID), Name: rr.GroupName},
					Action: access.Action(rr.Action),
					Force:  rr.Force,
					Min:    rr.Min,
					Max:    rr.Max,
				})
			}
			s.Permissions = append(s.Permissions, p)
		}
		cfg.AccessSections = append(cfg.AccessSections, s)
	}
	for _, lr := range row.Labels {
		l := &access.LabelType{
			Name:         lr.Name,
			Function:     access.LabelFunction(lr.Function),
			DefaultValue: lr.DefaultValue,
			Values:       make(map[int]string, len(lr.Values)),
		}
		for _, v := range lr.Values {
			l.Values[v.Value] = v.Text
		}
		cfg.LabelTypes = append(cfg.LabelTypes, l)
	}
	return cfg
}
