package database

import (
	"fmt"
	"strings"
)

// Unknown is reported for best-effort values that could not be determined.
const Unknown = "unknown"

// Capabilities records which optional spatial features the backend offers.
// It is computed once per connection.
type Capabilities struct {
	HasSpatialExtension    bool
	HasMetadataTable       bool
	HasMetadataTableAccess bool
}

// UseMetadataTable reports whether geometry_columns may be joined.
func (c Capabilities) UseMetadataTable() bool {
	return c.HasSpatialExtension && c.HasMetadataTable && c.HasMetadataTableAccess
}

// SpatialInfo holds PostGIS component versions.
type SpatialInfo struct {
	LibVersion       string
	ScriptsInstalled string
	ScriptsReleased  string
	GEOSVersion      string
	PROJVersion      string
}

// Schema is a namespace in the connected database.
type Schema struct {
	OID   int64
	Name  string
	Owner string
	ACL   string
}

// GeometryColumn describes a geometry-typed column of a table or view.
type GeometryColumn struct {
	Name      string
	Type      string
	Dimension int
	SRID      int

	// Registered is set when the values came from geometry_columns; otherwise
	// only Name and Type are known.
	Registered bool
}

// Table is a table or view, one entry per geometry column it has.
type Table struct {
	Name        string
	Schema      string
	IsView      bool
	Owner       string
	RowEstimate int64
	Pages       int64
	Geometry    *GeometryColumn
}

// QualifiedName returns schema.table without quoting.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column represents a table column with its catalog metadata.
type Column struct {
	Ordinal      int
	Name         string
	TypeName     string
	Length       int
	TypeModifier int
	NotNull      bool
	HasDefault   bool
	Default      string
}

// DisplayType renders the type with its declared length when it has one,
// e.g. varchar(40).
func (c Column) DisplayType() string {
	switch c.TypeName {
	case "varchar", "bpchar":
		if c.TypeModifier > 4 {
			return fmt.Sprintf("%s(%d)", c.TypeName, c.TypeModifier-4)
		}
	}
	return c.TypeName
}

// Index is a non primary key index of a table.
type Index struct {
	Name    string
	Columns []int
	Unique  bool
}

// ConstraintKind is the pg_constraint.contype code.
type ConstraintKind string

const (
	ConstraintCheck      ConstraintKind = "c"
	ConstraintForeignKey ConstraintKind = "f"
	ConstraintPrimaryKey ConstraintKind = "p"
	ConstraintUnique     ConstraintKind = "u"
	ConstraintTrigger    ConstraintKind = "t"
	ConstraintExclusion  ConstraintKind = "x"
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintCheck:
		return "check"
	case ConstraintForeignKey:
		return "foreign key"
	case ConstraintPrimaryKey:
		return "primary key"
	case ConstraintUnique:
		return "unique"
	case ConstraintTrigger:
		return "trigger"
	case ConstraintExclusion:
		return "exclusion"
	default:
		return Unknown
	}
}

// ReferentialAction is a foreign key ON UPDATE / ON DELETE code.
type ReferentialAction string

func (a ReferentialAction) String() string {
	switch a {
	case "a":
		return "NO ACTION"
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return ""
	}
}

// MatchType is a foreign key MATCH code.
type MatchType string

func (m MatchType) String() string {
	switch m {
	case "f":
		return "FULL"
	case "p":
		return "PARTIAL"
	case "s":
		return "SIMPLE"
	default:
		return ""
	}
}

// Constraint is a table constraint. Foreign key fields are zero for other kinds.
type Constraint struct {
	Name           string
	Kind           ConstraintKind
	Deferrable     bool
	Deferred       bool
	Columns        []int
	Check          string
	ForeignTable   string
	OnUpdate       ReferentialAction
	OnDelete       ReferentialAction
	Match          MatchType
	ForeignColumns []int
}

// TriggerType is the pg_trigger.tgtype bitmask.
type TriggerType int

const (
	TriggerRow      TriggerType = 1 << 0
	TriggerBefore   TriggerType = 1 << 1
	TriggerInsert   TriggerType = 1 << 2
	TriggerDelete   TriggerType = 1 << 3
	TriggerUpdate   TriggerType = 1 << 4
	TriggerTruncate TriggerType = 1 << 5
	TriggerInstead  TriggerType = 1 << 6
)

// Has reports whether every bit of flag is set.
func (t TriggerType) Has(flag TriggerType) bool {
	return t&flag == flag
}

// String renders the type the way CREATE TRIGGER spells it, e.g. "BEFORE INSERT OR UPDATE FOR EACH ROW".
func (t TriggerType) String() string {
	timing := "AFTER"
	switch {
	case t.Has(TriggerInstead):
		timing = "INSTEAD OF"
	case t.Has(TriggerBefore):
		timing = "BEFORE"
	}

	var events []string
	if t.Has(TriggerInsert) {
		events = append(events, "INSERT")
	}
	if t.Has(TriggerUpdate) {
		events = append(events, "UPDATE")
	}
	if t.Has(TriggerDelete) {
		events = append(events, "DELETE")
	}
	if t.Has(TriggerTruncate) {
		events = append(events, "TRUNCATE")
	}

	level := "STATEMENT"
	if t.Has(TriggerRow) {
		level = "ROW"
	}
	return fmt.Sprintf("%s %s FOR EACH %s", timing, strings.Join(events, " OR "), level)
}

// Trigger is a user-defined trigger on a table.
type Trigger struct {
	Name     string
	Function string
	Type     TriggerType
	Enabled  bool
}

// Rule is a rewrite rule on a table or view.
type Rule struct {
	Name       string
	Definition string
}

// Extent is a bounding box estimated from planner statistics.
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

func (e Extent) String() string {
	return fmt.Sprintf("%.6g, %.6g - %.6g, %.6g", e.XMin, e.YMin, e.XMax, e.YMax)
}

// DatabasePrivileges: can create schemas, can create temporary tables.
type DatabasePrivileges struct {
	Create bool
	Temp   bool
}

// SchemaPrivileges: can create objects, can access objects.
type SchemaPrivileges struct {
	Create bool
	Usage  bool
}

// TablePrivileges are the DML privileges of the current user on a table.
type TablePrivileges struct {
	Select bool
	Insert bool
	Update bool
	Delete bool
}

// NewField is a column definition for CreateTable.
type NewField struct {
	Name       string
	DataType   string
	NotNull    bool
	PrimaryKey bool
}

// GeometrySpec describes a geometry column to add with AddGeometryColumn.
type GeometrySpec struct {
	Column    string
	Type      string
	SRID      int
	Dimension int
}
