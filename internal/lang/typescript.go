package lang

func init() {
	Register(&LanguageSpec{
		Language:         TypeScript,
		FileExtensions:   []string{".ts", ".mts", ".cts"},
		SkipSuffixes:     []string{".d.ts", ".d.mts", ".d.cts"},
		CallNodeTypes:    []string{"call_expression"},
		MemberNodeTypes:  []string{"member_expression"},
		ObjectNodeTypes:  []string{"object"},
		ArrayNodeTypes:   []string{"array"},
		LiteralNodeTypes: ecmaLiterals,
		TransparentNodeTypes: []string{
			"parenthesized_expression",
			"as_expression",
			"satisfies_expression",
		},
	})
}
