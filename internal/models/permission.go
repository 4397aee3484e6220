package models

import "time"

// Role name constants. Roles beyond these can be added through the role
// table, but the fixed policy sets below only ever name these.
const (
	RoleAdmin           = "admin"
	RoleGeneralDirector = "general_director"
	RoleTechnical       = "technical"
	RoleSupply          = "supply"
	RoleProduction      = "production"
	RoleSales           = "sales"
)

// Permission field tags. A report field not covered by a specific tag falls
// back to FieldGeneral.
const (
	FieldGeneral          = "general"
	FieldExchangeQuantity = "exchange_quantity"
	FieldDefectOrigin     = "defect_origin"
	FieldRootCause        = "root_cause"
	FieldResolution       = "resolution"
	FieldStatus           = "status"
	FieldCompletedDate    = "completed_date"
)

// AllFieldTags lists every permission field tag.
var AllFieldTags = []string{
	FieldGeneral,
	FieldExchangeQuantity,
	FieldDefectOrigin,
	FieldRootCause,
	FieldResolution,
	FieldStatus,
	FieldCompletedDate,
}

// OriginsAll is the sentinel meaning a role may view every defect origin.
const OriginsAll = "all"

// RoleConfig is one row of the administrator-editable permission table.
type RoleConfig struct {
	Role                  string   `json:"role"`
	CanCreate             bool     `json:"can_create"`
	CanViewDashboard      bool     `json:"can_view_dashboard"`
	CanDelete             bool     `json:"can_delete"`
	ViewableDefectOrigins []string `json:"viewable_defect_origins"` // origin values or the "all" sentinel
	EditableFields        []string `json:"editable_fields"`         // permission field tags
}

// RoleTable is the singleton role-permission document, saved wholesale.
// The admin row is fixed policy and ignored on save.
type RoleTable struct {
	Roles     map[string]RoleConfig `json:"roles"`
	UpdatedBy string                `json:"updated_by,omitempty"`
	UpdatedAt time.Time             `json:"updated_at,omitempty"`
}

// FullyPermissiveRoleConfig returns a config granting everything, used for
// the admin role regardless of what the stored table says.
func FullyPermissiveRoleConfig(role string) RoleConfig {
	return RoleConfig{
		Role:                  role,
		CanCreate:             true,
		CanViewDashboard:      true,
		CanDelete:             true,
		ViewableDefectOrigins: []string{OriginsAll},
		EditableFields:        append([]string(nil), AllFieldTags...),
	}
}

// DefaultRoleTable seeds the permission table on first run.
func DefaultRoleTable() *RoleTable {
	return &RoleTable{
		Roles: map[string]RoleConfig{
			RoleAdmin: FullyPermissiveRoleConfig(RoleAdmin),
			RoleGeneralDirector: {
				Role:                  RoleGeneralDirector,
				CanViewDashboard:      true,
				ViewableDefectOrigins: []string{OriginsAll},
			},
			RoleTechnical: {
				Role:                  RoleTechnical,
				CanCreate:             true,
				CanViewDashboard:      true,
				CanDelete:             true,
				ViewableDefectOrigins: []string{OriginsAll},
				EditableFields:        append([]string(nil), AllFieldTags...),
			},
			RoleSupply: {
				Role:                  RoleSupply,
				CanCreate:             true,
				CanViewDashboard:      true,
				ViewableDefectOrigins: []string{OriginsAll},
				EditableFields:        []string{FieldGeneral, FieldExchangeQuantity, FieldStatus},
			},
			RoleProduction: {
				Role:                  RoleProduction,
				CanCreate:             true,
				ViewableDefectOrigins: []string{OriginProduction, OriginMixed},
				EditableFields:        []string{FieldGeneral, FieldRootCause, FieldResolution},
			},
			RoleSales: {
				Role:                  RoleSales,
				CanCreate:             true,
				ViewableDefectOrigins: []string{OriginOther},
			},
		},
	}
}
