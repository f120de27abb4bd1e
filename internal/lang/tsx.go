package lang

func init() {
	Register(&LanguageSpec{
		Language:         TSX,
		FileExtensions:   []string{".tsx"},
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
