package catalog

import (
	"regexp"
	"strings"
)

// SchemaPlaceholder marks a table reference to be qualified with the
// configured schema.
const SchemaPlaceholder = "{S}."

// DefaultSchema is used when no schema is configured.
const DefaultSchema = "smart_kitchen"

var schemaPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Qualify replaces every "{S}." in sql with "<schema>.". The replacement is
// literal text; callers must pass a schema accepted by ValidSchema.
func Qualify(sql, schema string) string {
	return strings.ReplaceAll(sql, SchemaPlaceholder, schema+".")
}

// ValidSchema reports whether schema is a plain unquoted identifier, the only
// form that is safe to splice into query text.
func ValidSchema(schema string) bool {
	return schemaPattern.MatchString(schema)
}
