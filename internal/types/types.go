// Package types holds the data model shared by every component of the
// i18n workspace index (spec.md §3): file identity, source and
// translation files, key usages, lexical scopes, and the spans that tie
// them back to editor-visible positions.
package types

import "go.lsp.dev/protocol"

// FileID is a 32-bit integer assigned on first registration and never
// reused (spec.md: "Registration is monotone").
type FileID uint32

// InvalidFileID is returned by lookups that find nothing.
const InvalidFileID FileID = 0

// LanguageKind is the parsed source-file flavour.
type LanguageKind uint8

const (
	LangUnknown LanguageKind = iota
	LangJS
	LangJSX
	LangTS
	LangTSX
)

func (k LanguageKind) String() string {
	switch k {
	case LangJS:
		return "js"
	case LangJSX:
		return "jsx"
	case LangTS:
		return "ts"
	case LangTSX:
		return "tsx"
	default:
		return "unknown"
	}
}

// FileClass is what File Registry classification (Component A) assigns
// to a path.
type FileClass uint8

const (
	ClassIgnored FileClass = iota
	ClassSource
	ClassTranslation
	ClassConfig
)

// Span is a half-open byte range plus a slot for its editor-facing
// Range. Byte offsets are authoritative for re-slicing file content.
// Range is filled only when a span is passed through registry.ToSpan;
// the spans the parser, loader and graph produce leave it zero.
type Span struct {
	StartByte uint32
	EndByte   uint32
	Range     protocol.Range
}

// Empty reports whether the span covers zero bytes.
func (s Span) Empty() bool { return s.StartByte >= s.EndByte }

// SourceFile is a JS/JSX/TS/TSX file tracked by the index (spec.md §3).
// Mutated only by the text-sync collaborator (open/change/close);
// old versions are dropped once no computation references them.
type SourceFile struct {
	FileID   FileID
	Path     string
	Language LanguageKind
	Bytes    []byte
	Version  int
}

// TranslationValue is a single leaf of a flattened translation file.
type TranslationValue struct {
	Value     string
	KeySpan   Span
	ValueSpan Span
}

// TranslationFile is a parsed JSON locale file (spec.md §3/§4.E).
type TranslationFile struct {
	FileID        FileID
	Path          string
	LanguageTag   string // BCP-47-like tag, or filename stem, or "_unknown"
	NamespaceTag  string // "" if undetermined
	FlattenedKeys map[string]TranslationValue
	// Malformed records that the JSON failed to parse; FlattenedKeys is
	// then empty (or a partial recovery). No diagnostic is derived from
	// the flag: the query API does not report malformed files.
	Malformed bool
}

// LibraryFlavour identifies which i18n call convention a scope/usage
// follows. Distinct flavours may use distinct default-namespace rules.
type LibraryFlavour uint8

const (
	FlavourUnknown LibraryFlavour = iota
	FlavourI18next
	FlavourReactI18next
	FlavourNextIntl
)

// PluralSuffix enumerates the CLDR-ish suffix forms spec.md §4.D lists.
type PluralSuffix string

const (
	PluralZero  PluralSuffix = "zero"
	PluralOne   PluralSuffix = "one"
	PluralTwo   PluralSuffix = "two"
	PluralFew   PluralSuffix = "few"
	PluralMany  PluralSuffix = "many"
	PluralOther PluralSuffix = "other"
)

// AllPluralSuffixes is the fixed candidate set used when a call carries
// a count/plural option (spec.md §4.D step 4).
var AllPluralSuffixes = []PluralSuffix{PluralZero, PluralOne, PluralTwo, PluralFew, PluralMany, PluralOther}

// KeyUsage is one observed invocation of a translation function, after
// scope resolution (spec.md §3). ResolvedKey == "" marks a usage that
// exists only to power completion (an empty or non-literal t()
// argument); such usages must never drive a missing-key diagnostic.
type KeyUsage struct {
	FileID       FileID
	Span         Span
	ResolvedKey  string
	Namespace    string // "" if the call could not be associated with any namespace
	Flavour      LibraryFlavour
	PluralSuffix []PluralSuffix // nil unless the call has a count/plural option
	Ambiguous    bool           // true if namespace resolution failed (spec.md §7 Scope-ambiguous)
	FallbackNS   []string       // additional namespace candidates, array-form useTranslation
}

// Scope is a lexical region binding a local name to an i18n call
// context (spec.md §3/§4.D). Scopes nest; StartByte/EndByte give the
// enclosing function/block's byte range, not the binding statement's.
type Scope struct {
	FileID    FileID
	StartByte uint32
	EndByte   uint32
	LocalName string // e.g. "t"
	Namespace string // "" if none
	// FallbackNS holds secondary namespaces from an array-form
	// useTranslation(["common","errors"]) call: the rest are lookup
	// fallbacks per spec.md §4.D tie-break rule.
	FallbackNS []string
	KeyPrefix  string
	Flavour    LibraryFlavour
}

// Contains reports whether byte offset b falls within [StartByte, EndByte).
func (s Scope) Contains(b uint32) bool { return b >= s.StartByte && b < s.EndByte }

// Width reports the scope's byte extent. Used by the scope resolver to
// prefer the innermost (narrowest) enclosing scope when several bind
// the same LocalName (spec.md "Innermost scope wins").
func (s Scope) Width() uint32 { return s.EndByte - s.StartByte }
