package router

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ai-drafting-be/internal/repository/unitofwork"
)

// ScopeEntryType classifies what a resolved reference points at.
type ScopeEntryType string

const (
	ScopeEntryContent ScopeEntryType = "content"
	ScopeEntryFile    ScopeEntryType = "file"
	ScopeEntrySource  ScopeEntryType = "source"
	ScopeEntrySection ScopeEntryType = "section"
)

// ScopeEntry is one authorized target. Metadata carries resolution details
// (e.g. the parent content id of a section).
type ScopeEntry struct {
	Type     ScopeEntryType
	ID       string
	Token    ReferenceToken
	Metadata map[string]string
}

// Scope is the set of targets a prompt's references authorize. Entries are
// unique by (Type, ID); the first resolving token wins.
type Scope struct {
	Entries    []ScopeEntry
	Unresolved []ReferenceToken
}

// Contains reports whether the scope holds an entry of the given type and id.
func (s *Scope) Contains(t ScopeEntryType, id string) bool {
	for _, e := range s.Entries {
		if e.Type == t && e.ID == id {
			return true
		}
	}
	return false
}

// HasContent reports whether a content id is in scope, either directly or as
// the parent of a referenced section.
func (s *Scope) HasContent(id string) bool {
	return s.Contains(ScopeEntryContent, id)
}

// HasFile reports whether a file id is in scope.
func (s *Scope) HasFile(id string) bool {
	return s.Contains(ScopeEntryFile, id)
}

// ContentRef is a resolvable document. Sections maps a section key (the
// anchor value) to the section id.
type ContentRef struct {
	ID       string
	Slug     string
	Title    string
	Sections map[string]string
}

// FileRef is a resolvable uploaded file.
type FileRef struct {
	ID   string
	Name string
}

// SourceRef is a resolvable ingested source text.
type SourceRef struct {
	ID    string
	Alias string
}

// Lookup carries the resolution tables, keyed the way users write references:
// contents by slug, files by name, sources by alias. Keys are matched
// case-insensitively.
type Lookup struct {
	Contents map[string]ContentRef
	Files    map[string]FileRef
	Sources  map[string]SourceRef
}

// Resolver turns parsed reference tokens into an authorization scope.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve maps each token against the lookup tables. Contents are tried
// first, then files, then sources. A token whose identifier was split at a
// colon is retried with the full raw identifier, so slugs that themselves
// contain a colon still resolve. Tokens matching nothing are collected in
// Scope.Unresolved and otherwise ignored.
func (r *Resolver) Resolve(tokens []ReferenceToken, lookup Lookup) *Scope {
	scope := &Scope{}
	seen := make(map[string]bool)

	add := func(entry ScopeEntry) {
		key := string(entry.Type) + "\x00" + entry.ID
		if seen[key] {
			return
		}
		seen[key] = true
		scope.Entries = append(scope.Entries, entry)
	}

	for _, token := range tokens {
		if r.resolveOne(token, token.Identifier, token.Anchor, lookup, add) {
			continue
		}

		// Colon-anchored tokens may actually be an un-anchored identifier
		// containing a colon.
		if token.Anchor != nil && token.Anchor.Kind == AnchorKindColon {
			full := token.Identifier + ":" + token.Anchor.Value
			if r.resolveOne(token, full, nil, lookup, add) {
				continue
			}
		}

		scope.Unresolved = append(scope.Unresolved, token)
	}
	return scope
}

func (r *Resolver) resolveOne(token ReferenceToken, identifier string, anchor *ReferenceAnchor, lookup Lookup, add func(ScopeEntry)) bool {
	key := strings.ToLower(identifier)

	if content, ok := lookup.Contents[key]; ok {
		// A referenced section also puts its parent document in scope.
		if anchor != nil {
			if sectionID, ok := content.Sections[strings.ToLower(anchor.Value)]; ok {
				add(ScopeEntry{
					Type:     ScopeEntrySection,
					ID:       sectionID,
					Token:    token,
					Metadata: map[string]string{"contentId": content.ID, "sectionKey": anchor.Value},
				})
			}
			// An unknown anchor still resolves to the whole document.
		}
		add(ScopeEntry{
			Type:     ScopeEntryContent,
			ID:       content.ID,
			Token:    token,
			Metadata: map[string]string{"slug": content.Slug, "title": content.Title},
		})
		return true
	}

	if file, ok := lookup.Files[key]; ok {
		add(ScopeEntry{
			Type:     ScopeEntryFile,
			ID:       file.ID,
			Token:    token,
			Metadata: map[string]string{"name": file.Name},
		})
		return true
	}

	if source, ok := lookup.Sources[key]; ok {
		add(ScopeEntry{
			Type:     ScopeEntrySource,
			ID:       source.ID,
			Token:    token,
			Metadata: map[string]string{"alias": source.Alias},
		})
		return true
	}

	return false
}

// BuildLookup assembles the resolution tables for one organization from the
// repositories.
func BuildLookup(ctx context.Context, uow unitofwork.UnitOfWork, organizationID uuid.UUID) (Lookup, error) {
	lookup := Lookup{
		Contents: make(map[string]ContentRef),
		Files:    make(map[string]FileRef),
		Sources:  make(map[string]SourceRef),
	}

	contents, err := uow.ContentRepository().FindByOrganizationId(ctx, organizationID)
	if err != nil {
		return Lookup{}, err
	}
	for _, c := range contents {
		ref := ContentRef{
			ID:       c.Id.String(),
			Slug:     c.Slug,
			Title:    c.Title,
			Sections: make(map[string]string),
		}
		for _, s := range c.Sections {
			ref.Sections[strings.ToLower(s.Key)] = s.Id.String()
		}
		lookup.Contents[strings.ToLower(c.Slug)] = ref
	}

	files, err := uow.FileRepository().FindByOrganizationId(ctx, organizationID)
	if err != nil {
		return Lookup{}, err
	}
	for _, f := range files {
		lookup.Files[strings.ToLower(f.Name)] = FileRef{ID: f.Id.String(), Name: f.Name}
	}

	sources, err := uow.SourceContentRepository().FindByOrganizationId(ctx, organizationID)
	if err != nil {
		return Lookup{}, err
	}
	for _, s := range sources {
		lookup.Sources[strings.ToLower(s.Alias)] = SourceRef{ID: s.Id.String(), Alias: s.Alias}
	}

	return lookup, nil
}
