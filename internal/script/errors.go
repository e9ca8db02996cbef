package script

import "errors"

var (
	// ErrAutomaticMigrationNotScriptable is returned when a script bound names an
	// automatically generated migration.
	ErrAutomaticMigrationNotScriptable = errors.New("automatic migrations cannot be used as script boundaries")
	// ErrDowngradeBoundsRequired is returned by ScriptDown when either bound is empty.
	ErrDowngradeBoundsRequired = errors.New("downward script requires both source and target migrations")
	// ErrMissingMigrationID is returned when operations are merged into a
	// bootstrap set without a migration id.
	ErrMissingMigrationID = errors.New("migration id is required")
)
