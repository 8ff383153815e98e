package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Usage Errors (E001-E005)
	// ============================================

	"E001": {
		Category:   CategoryUsage,
		Message:    "Provide called without an owner",
		Detail:     "Context values are stored on the currently executing node. Outside of Root, an effect or a memo there is no node to store them on.",
		Suggestion: "Call Provide inside Root, an effect, or a memo.",
	},
	"E002": {
		Category:   CategoryUsage,
		Message:    "Inject called without an owner",
		Detail:     "Inject walks the ownership chain starting at the currently executing node. There is no node to start from.",
		Suggestion: "Call Inject inside Root, an effect, or a memo. Untrack clears the owner too.",
	},
	"E003": {
		Category:   CategoryUsage,
		Message:    "OnCleanup called without an owner",
		Detail:     "Cleanup callbacks belong to the currently executing node and run when it is cleaned or disposed.",
		Suggestion: "Register cleanups inside Root, an effect, or a memo.",
	},
	"E004": {
		Category:   CategoryUsage,
		Message:    "CatchError called without an owner",
		Detail:     "Error handlers are stored in the context of the currently executing node.",
		Suggestion: "Register error handlers inside Root, an effect, or a memo.",
	},
	"E005": {
		Category:   CategoryUsage,
		Message:    "CurrentNode called without an owner",
		Detail:     "No node is currently executing.",
		Suggestion: "Use Runtime.Owner when a nil result is acceptable.",
	},

	// ============================================
	// Runtime Errors (E006-E009)
	// ============================================

	"E006": {
		Category: CategoryRuntime,
		Message:  "Reactive computation panicked",
		Detail:   "A computation, scope setup function or cleanup panicked. The panic was recovered and routed to the nearest error handler.",
	},

	// ============================================
	// Scheduler Errors (E010)
	// ============================================

	"E010": {
		Category:   CategoryScheduler,
		Message:    "Flush run limit exceeded",
		Detail:     "A single flush re-ran more nodes than the configured limit. This usually means computations keep creating or re-queueing other computations. The remaining pending nodes were dropped.",
		Suggestion: "Break the dependency cycle, or raise scheduler.maxFlushRuns.",
	},

	// ============================================
	// Host Errors (E011-E019)
	// ============================================

	"E011": {
		Category:   CategoryHost,
		Message:    "Dispatch queue full",
		Detail:     "The event loop inbox is full. The dispatched function was not queued.",
		Suggestion: "Increase the loop queue size or reduce dispatch frequency.",
	},
	"E012": {
		Category: CategoryHost,
		Message:  "Event loop closed",
		Detail:   "The event loop has stopped and no longer accepts work.",
	},
	"E013": {
		Category:   CategoryHost,
		Message:    "Event loop already running",
		Detail:     "A runtime is single-threaded. Only one goroutine may drive its loop.",
		Suggestion: "Call Run once per loop.",
	},

	// ============================================
	// Config Errors (E020-E029)
	// ============================================

	"E020": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Detail:     "The configuration file could not be parsed or contains invalid values.",
		Suggestion: "Run `space config` to print the effective configuration.",
	},
	"E021": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},

	// ============================================
	// CLI Errors (E030-E039)
	// ============================================

	"E030": {
		Category:   CategoryCLI,
		Message:    "Unknown demo scenario",
		Suggestion: "Run `space demo --help` to list scenarios.",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
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
