package example

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

type AuditAction string

const (
	AuditActionRetentionApplied AuditAction = "retention_applied"
)

type Organization struct {
	Plan Plan
}

type AuditLogEntry struct {
	Action AuditAction
}

func bad() {
	o := &Organization{}
	o.Plan = "platinum" // want "enum field Plan assigned string literal"

	e := &AuditLogEntry{}
	e.Action = "deleted_everything" // want "enum field Action assigned string literal"

	_ = Organization{Plan: "gold"} // want "enum field Plan assigned string literal"
}

func good() {
	o := &Organization{}
	o.Plan = PlanPro // OK: using constant

	e := AuditLogEntry{Action: AuditActionRetentionApplied} // OK: using constant
	_ = e
}

func alsoGood() {
	// OK: Variable, not literal
	plan := PlanFree
	o := &Organization{Plan: plan}
	_ = o
}
