// Package permission resolves role capabilities for defect reports.
//
// Two layers feed a Capability: fixed policy sets derived from the role name
// alone, and the administrator-editable role table. Every lookup fails
// closed — a role with no table entry can do nothing.
package permission

import (
	"github.com/htmmed/qctrack/internal/models"
)

// Fixed policy sets. These are not configurable through the role table.
var (
	editCapableRoles = map[string]bool{
		models.RoleAdmin:      true,
		models.RoleTechnical:  true,
		models.RoleSupply:     true,
		models.RoleProduction: true,
	}

	deleteCapableRoles = map[string]bool{
		models.RoleAdmin:     true,
		models.RoleTechnical: true,
	}

	originVisibleRoles = map[string]bool{
		models.RoleAdmin:           true,
		models.RoleGeneralDirector: true,
		models.RoleSupply:          true,
		models.RoleTechnical:       true,
	}
)

// Capability bundles everything a request handler needs to know about what
// a role may do. Resolve it once per request and pass it down; never
// re-derive permissions ad hoc at call sites.
type Capability struct {
	Role string

	CanCreateReport    bool
	CanViewDashboard   bool
	CanDeleteReport    bool
	CanEditAnyField    bool
	CanSeeDefectOrigin bool

	allOrigins      bool
	viewableOrigins map[string]bool
	editableFields  map[string]bool
}

// Resolve computes the Capability for a role against the stored role table.
// A nil table, or a role absent from it, yields a zero capability. The admin
// role is always fully permissive regardless of the table contents.
func Resolve(role string, table *models.RoleTable) Capability {
	c := Capability{Role: role}
	if role == "" {
		return c
	}

	var cfg models.RoleConfig
	var ok bool
	if role == models.RoleAdmin {
		cfg, ok = models.FullyPermissiveRoleConfig(role), true
	} else if table != nil {
		cfg, ok = table.Roles[role]
	}
	if !ok {
		return c
	}

	c.CanCreateReport = cfg.CanCreate && editCapableRoles[role]
	c.CanViewDashboard = cfg.CanViewDashboard
	c.CanDeleteReport = cfg.CanDelete && deleteCapableRoles[role]
	c.CanEditAnyField = editCapableRoles[role]
	c.CanSeeDefectOrigin = originVisibleRoles[role]

	c.viewableOrigins = make(map[string]bool, len(cfg.ViewableDefectOrigins))
	for _, origin := range cfg.ViewableDefectOrigins {
		if origin == models.OriginsAll {
			c.allOrigins = true
			continue
		}
		c.viewableOrigins[models.NormalizeOrigin(origin)] = true
	}

	c.editableFields = make(map[string]bool, len(cfg.EditableFields))
	for _, tag := range cfg.EditableFields {
		c.editableFields[tag] = true
	}

	return c
}

// CanEditField reports whether the role may edit fields carrying the given
// permission tag. Unknown tags fall back to the general tag. Roles outside
// the edit-capable set may edit nothing, whatever the table says.
func (c Capability) CanEditField(tag string) bool {
	if !c.CanEditAnyField {
		return false
	}
	if c.editableFields == nil {
		return false
	}
	known := false
	for _, t := range models.AllFieldTags {
		if t == tag {
			known = true
			break
		}
	}
	if !known {
		tag = models.FieldGeneral
	}
	return c.editableFields[tag]
}

// AllOriginsViewable reports whether the role's origin restriction is the
// "all" sentinel.
func (c Capability) AllOriginsViewable() bool {
	return c.allOrigins
}

// CanViewOrigin reports whether a report with the given defect origin is
// visible to the role. Origins compare after legacy-spelling normalization.
func (c Capability) CanViewOrigin(origin string) bool {
	if c.allOrigins {
		return true
	}
	if c.viewableOrigins == nil {
		return false
	}
	return c.viewableOrigins[models.NormalizeOrigin(origin)]
}
