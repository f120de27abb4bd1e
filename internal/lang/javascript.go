package lang

func init() {
	Register(&LanguageSpec{
		Language:             JavaScript,
		FileExtensions:       []string{".js", ".jsx", ".mjs", ".cjs"},
		CallNodeTypes:        []string{"call_expression"},
		MemberNodeTypes:      []string{"member_expression"},
		ObjectNodeTypes:      []string{"object"},
		ArrayNodeTypes:       []string{"array"},
		LiteralNodeTypes:     ecmaLiterals,
		TransparentNodeTypes: []string{"parenthesized_expression"},
	})
}
