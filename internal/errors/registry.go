package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	Fatal      bool
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Engine Invariants (H001-H019)
	// ============================================

	"H001": {
		Category: CategoryRuntime,
		Message:  "Fragment is unevaluated",
		Detail:   "An evaluated fragment was expected but the slot still holds an unevaluated one.",
		Fatal:    true,
	},
	"H002": {
		Category: CategoryRuntime,
		Message:  "Fragment is already evaluated",
		Detail:   "An unevaluated fragment was expected but the slot already holds an evaluated one.",
		Fatal:    true,
	},
	"H003": {
		Category:   CategoryRuntime,
		Message:    "Sibling fragments share a key",
		Detail:     "Children of one fragment need pairwise distinct keys.",
		Suggestion: "Pass an explicit key, e.g. ctx.ChildKey(item.ID)",
		Fatal:      true,
	},
	"H004": {
		Category:   CategoryRuntime,
		Message:    "Local hook slots exhausted",
		Detail:     "A fragment allocated more than 32768 local hooks in one evaluation.",
		Suggestion: "Split the fragment into children",
		Fatal:      true,
	},
	"H005": {
		Category: CategoryRuntime,
		Message:  "External hook slots exhausted",
		Detail:   "More than 32768 external hooks were allocated for one key.",
		Fatal:    true,
	},
	"H006": {
		Category:   CategoryRuntime,
		Message:    "Update did not converge",
		Detail:     "Argument propagation kept re-queuing fragments past the configured budget.",
		Suggestion: "Check for generators that hand a child fresh arguments on every evaluation",
		Fatal:      true,
	},
	"H007": {
		Category: CategoryRuntime,
		Message:  "Hook value type mismatch",
		Fatal:    true,
	},
	"H008": {
		Category: CategoryRuntime,
		Message:  "Fragment slot is empty",
		Detail:   "The fragment slot was freed or never populated.",
		Fatal:    true,
	},
	"H009": {
		Category: CategoryRuntime,
		Message:  "Unknown layout handle",
		Fatal:    true,
	},

	// ============================================
	// Inspector Errors (H060-H079)
	// ============================================

	"H060": {
		Category: CategoryInspector,
		Message:  "Inspector server failed",
	},
	"H061": {
		Category: CategoryInspector,
		Message:  "WebSocket upgrade failed",
	},

	// ============================================
	// Config Errors (H120-H159)
	// ============================================

	"H120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"H121": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"H141": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create heart.json or pass --config",
	},

	// ============================================
	// CLI Errors (H200-H219)
	// ============================================

	"H200": {
		Category: CategoryCLI,
		Message:  "Unknown demo scenario",
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
