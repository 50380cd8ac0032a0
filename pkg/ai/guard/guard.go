// Package guard gates AI tool invocations on conversation mode and the
// reference scope built from the user's prompt. Decisions are pure: no I/O,
// no state, same inputs always produce the same answer.
package guard

import (
	"fmt"

	"ai-drafting-be/pkg/ai/router"
)

// Mode is the conversation mode the invocation happens in.
type Mode string

const (
	// ModeChat is read-only assistance; mutating tools are never allowed.
	ModeChat Mode = "chat"
	// ModeAgent allows mutations, but only against referenced targets.
	ModeAgent Mode = "agent"
)

// ToolName identifies a tool in the closed registry.
type ToolName string

const (
	ToolReadContent   ToolName = "read_content"
	ToolListFiles     ToolName = "list_files"
	ToolSearchSources ToolName = "search_sources"
	ToolEditMetadata  ToolName = "edit_metadata"
	ToolUpdateContent ToolName = "update_content"
	ToolEditSection   ToolName = "edit_section"
	ToolReplaceFile   ToolName = "replace_file"
)

// toolSpec describes how one tool is authorized. keyArg names the invocation
// argument holding the authorization key; keyType is the scope entry type
// that key must match.
type toolSpec struct {
	mutating bool
	keyArg   string
	keyType  router.ScopeEntryType
}

// The registry is closed: tools not listed here are denied outright.
// Note edit_section is keyed by the PARENT content id, not the section id;
// referencing a section puts its parent in scope, so a section reference
// authorizes edits to that section.
var registry = map[ToolName]toolSpec{
	ToolReadContent:   {mutating: false},
	ToolListFiles:     {mutating: false},
	ToolSearchSources: {mutating: false},
	ToolEditMetadata:  {mutating: true, keyArg: "content_id", keyType: router.ScopeEntryContent},
	ToolUpdateContent: {mutating: true, keyArg: "content_id", keyType: router.ScopeEntryContent},
	ToolEditSection:   {mutating: true, keyArg: "content_id", keyType: router.ScopeEntryContent},
	ToolReplaceFile:   {mutating: true, keyArg: "file_id", keyType: router.ScopeEntryFile},
}

// Invocation is one requested tool call.
type Invocation struct {
	Tool ToolName
	Args map[string]string
}

// Policy is the context a decision is made in.
type Policy struct {
	Mode  Mode
	Scope *router.Scope
}

// Denial explains why an invocation was refused. A nil *Denial means the
// invocation is allowed.
type Denial struct {
	Tool   ToolName
	Reason string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s denied: %s", d.Tool, d.Reason)
}

// Decide authorizes a single tool invocation.
//   - read-only tools are always allowed
//   - mutating tools are denied in chat mode
//   - in agent mode a mutating tool is allowed only when its authorization
//     key is in the reference scope
//   - unknown tools fail closed
func Decide(inv Invocation, policy Policy) *Denial {
	spec, known := registry[inv.Tool]
	if !known {
		return &Denial{
			Tool:   inv.Tool,
			Reason: fmt.Sprintf("tool %q is not registered", inv.Tool),
		}
	}

	if !spec.mutating {
		return nil
	}

	if policy.Mode != ModeAgent {
		return &Denial{
			Tool:   inv.Tool,
			Reason: fmt.Sprintf("%s is not available in chat mode", inv.Tool),
		}
	}

	key := ""
	if inv.Args != nil {
		key = inv.Args[spec.keyArg]
	}
	if key == "" {
		return &Denial{
			Tool:   inv.Tool,
			Reason: fmt.Sprintf("missing %s argument", spec.keyArg),
		}
	}

	if policy.Scope == nil || !policy.Scope.Contains(spec.keyType, key) {
		return &Denial{
			Tool:   inv.Tool,
			Reason: fmt.Sprintf("the target of %s wasn't referenced in the prompt", inv.Tool),
		}
	}

	return nil
}
