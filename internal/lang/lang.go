package lang

// Language represents a supported source language.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{JavaScript, TypeScript, TSX}
}

// LanguageSpec defines the tree-sitter node kinds the schema rewrite relies on.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string
	// SkipSuffixes are file name suffixes that carry no runtime code (e.g. ".d.ts").
	SkipSuffixes []string

	CallNodeTypes   []string
	MemberNodeTypes []string
	ObjectNodeTypes []string
	ArrayNodeTypes  []string
	// LiteralNodeTypes are leaf values that never reference a binding.
	LiteralNodeTypes []string
	// TransparentNodeTypes wrap a single expression without changing what it references
	// (parentheses, TypeScript "as"/"satisfies").
	TransparentNodeTypes []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".ts").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// Has reports whether kind is one of kinds.
func Has(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ecmaLiterals are shared by every grammar in this package.
var ecmaLiterals = []string{
	"string", "number", "true", "false", "null", "undefined", "regex", "template_string",
}
