package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://vango.dev/docs/partition/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (P001-P019)
	// ============================================

	"P001": {
		Category: CategoryRuntime,
		Message:  "Dispatch to unknown part",
		Detail:   "An action referenced a part the store was not created with.",
		DocURL:   docBase + "P001",
	},
	"P002": {
		Category: CategoryRuntime,
		Message:  "Nil listener",
		Detail:   "Subscribe and SubscribeToPart require a non-nil listener function.",
		DocURL:   docBase + "P002",
	},
	"P003": {
		Category: CategoryRuntime,
		Message:  "Nil action",
		Detail:   "Dispatch requires an action value or a thunk.",
		DocURL:   docBase + "P003",
	},
	"P004": {
		Category: CategoryRuntime,
		Message:  "Part is read-only",
		Detail:   "Select parts and update parts have no setter. Use a proxy part to write through a derived view.",
		DocURL:   docBase + "P004",
	},

	// ============================================
	// Config Errors (P020-P039)
	// ============================================

	"P020": {
		Category: CategoryConfig,
		Message:  "Invalid part configuration",
		Detail:   "The arguments given to the part constructor do not describe any part kind.",
		DocURL:   docBase + "P020",
	},
	"P021": {
		Category: CategoryConfig,
		Message:  "Part already composed",
		Detail:   "A stateful part can belong to a single parent. Composing it into a second parent would silently move its slice.",
		DocURL:   docBase + "P021",
	},
	"P022": {
		Category: CategoryConfig,
		Message:  "Duplicate part name",
		Detail:   "Sibling parts share a key in the state tree, so their names must be unique.",
		DocURL:   docBase + "P022",
	},
	"P023": {
		Category: CategoryConfig,
		Message:  "Part belongs to another graph",
		Detail:   "Parts can only be composed, derived from or partitioned with parts of the same graph.",
		DocURL:   docBase + "P023",
	},
	"P024": {
		Category: CategoryConfig,
		Message:  "Reducer returned nil slice",
		Detail:   "An external reducer merged into the partitioner returned nil for its key during initialization.",
		DocURL:   docBase + "P024",
	},
	"P025": {
		Category: CategoryConfig,
		Message:  "Invalid partition",
		Detail:   "Partition needs at least one top-level stateful part.",
		DocURL:   docBase + "P025",
	},

	// ============================================
	// Devtools Errors (P060-P079)
	// ============================================

	"P060": {
		Category: CategoryDevtools,
		Message:  "Part not found",
		Detail:   "No part with this id exists in the inspected graph.",
		DocURL:   docBase + "P060",
	},
	"P061": {
		Category: CategoryDevtools,
		Message:  "Invalid request body",
		Detail:   "The request body must be a JSON object with a \"value\" or \"args\" field.",
		DocURL:   docBase + "P061",
	},

	// ============================================
	// CLI Errors (P080-P099)
	// ============================================

	"P080": {
		Category: CategoryCLI,
		Message:  "Config load failed",
		Detail:   "The configuration file could not be read or parsed.",
		DocURL:   docBase + "P080",
	},
	"P081": {
		Category: CategoryCLI,
		Message:  "Unknown output format",
		Detail:   "Supported formats are table, json and yaml.",
		DocURL:   docBase + "P081",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
