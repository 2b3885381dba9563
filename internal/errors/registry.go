package errors

import "sort"

// ErrorTemplate defines a registered diagnostic.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://kinesis.vango.dev/errors/"

// registry maps codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Dispatch and render (K001-K019)
	// ============================================

	"K001": {
		Category: CategoryDispatch,
		Message:  "Unresolved identifier",
		Detail:   "The event or propagation was addressed to a node that is not in the tree. This is expected when an event races the removal of its component; the event is dropped and the tree is unchanged.",
		DocURL:   docBase + "K001",
	},
	"K002": {
		Category: CategoryRender,
		Message:  "Render index out of range",
		Detail:   "A component reported a changed child index that does not exist. Nothing was rendered for the pass. This is a bug in the component's HandleEvent or in the code calling Propagate.",
		DocURL:   docBase + "K002",
	},
	"K003": {
		Category: CategoryDispatch,
		Message:  "Component panicked in HandleEvent",
		Detail:   "The panic was recovered and the pass aborted. The tree is idle and keeps serving events.",
		DocURL:   docBase + "K003",
	},
	"K004": {
		Category: CategoryRender,
		Message:  "Component panicked in Render",
		Detail:   "The panic was recovered and the pass aborted. Renders committed before the panic stay committed.",
		DocURL:   docBase + "K004",
	},
	"K005": {
		Category: CategoryRender,
		Message:  "Render commit failed",
		Detail:   "The sink rejected a render update, usually because the client connection is gone. The remaining renders of the pass were not issued.",
		DocURL:   docBase + "K005",
	},
	"K006": {
		Category: CategoryDispatch,
		Message:  "Dispatch already in progress",
		Detail:   "Dispatch was called while the tree was running a pass, typically from inside a component callback. Components should request renders through their UpdateFunc instead.",
		DocURL:   docBase + "K006",
	},
	"K007": {
		Category: CategoryDispatch,
		Message:  "Follow-up limit reached",
		Detail:   "Propagations posted during a pass kept posting more. The tree ran its follow-up budget and left the rest queued for the next drain, so the session keeps serving events.",
		DocURL:   docBase + "K007",
	},

	// ============================================
	// Tree shape (K020-K039)
	// ============================================

	"K020": {
		Category: CategoryTree,
		Message:  "Controller already attached",
		Detail:   "A controller can be attached to one parent once. Detached controllers cannot be reused.",
		DocURL:   docBase + "K020",
	},
	"K021": {
		Category: CategoryTree,
		Message:  "Child index in use",
		Detail:   "Another child is attached at that index. Detach it first.",
		DocURL:   docBase + "K021",
	},
	"K022": {
		Category: CategoryTree,
		Message:  "Negative child index",
		Detail:   "Child indices must be zero or greater.",
		DocURL:   docBase + "K022",
	},
	"K023": {
		Category: CategoryTree,
		Message:  "Invalid identifier",
		Detail:   "The identifier could not be parsed or has no parent.",
		DocURL:   docBase + "K023",
	},

	// ============================================
	// Protocol and sessions (K040-K059)
	// ============================================

	"K040": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "A frame or its payload could not be decoded.",
		DocURL:   docBase + "K040",
	},
	"K041": {
		Category: CategoryProtocol,
		Message:  "Unknown event type",
		Detail:   "The event type byte is not one of the known event kinds.",
		DocURL:   docBase + "K041",
	},
	"K042": {
		Category: CategoryProtocol,
		Message:  "Frame too large",
		Detail:   "Frame payloads are limited to 65535 bytes. Split large renders into partial updates.",
		DocURL:   docBase + "K042",
	},
	"K050": {
		Category: CategorySession,
		Message:  "Session limit reached",
		Detail:   "The server is at its configured maximum number of sessions.",
		DocURL:   docBase + "K050",
	},
	"K051": {
		Category: CategorySession,
		Message:  "Session closed",
		Detail:   "The session was closed before the operation completed.",
		DocURL:   docBase + "K051",
	},
	"K052": {
		Category: CategorySession,
		Message:  "Event queue full",
		Detail:   "The client sent events faster than the session could handle them.",
		DocURL:   docBase + "K052",
	},
	"K053": {
		Category: CategorySession,
		Message:  "No root component",
		Detail:   "The server has no root factory, so it cannot build a tree for a new session.",
		DocURL:   docBase + "K053",
	},

	// ============================================
	// Journal (K060-K079)
	// ============================================

	"K060": {
		Category: CategoryJournal,
		Message:  "Journal not found",
		Detail:   "No batches exist for that journal id in the configured store.",
		DocURL:   docBase + "K060",
	},
	"K061": {
		Category: CategoryJournal,
		Message:  "Journal batch corrupt",
		Detail:   "A stored batch is not a journal batch or was written by an unsupported version.",
		DocURL:   docBase + "K061",
	},
	"K062": {
		Category: CategoryJournal,
		Message:  "Replay diverged",
		Detail:   "The replayed tree produced different passes than the recorded ones. Components whose HandleEvent depends on time, randomness or outside state do not replay deterministically.",
		DocURL:   docBase + "K062",
	},

	// ============================================
	// Configuration and CLI (K080-K099)
	// ============================================

	"K080": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "kinesis.yaml or kinesis.json was not found in the directory.",
		DocURL:   docBase + "K080",
	},
	"K081": {
		Category: CategoryConfig,
		Message:  "Invalid config syntax",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   docBase + "K081",
	},
	"K082": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range or inconsistent with another value.",
		DocURL:   docBase + "K082",
	},
	"K090": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
		DocURL:   docBase + "K090",
	},
	"K099": {
		Category: CategoryCLI,
		Message:  "Internal error",
		Detail:   "An error without a more specific diagnostic.",
		DocURL:   docBase + "K099",
	},
}

// GetAllCodes returns all registered codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for a code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
