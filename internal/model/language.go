package model

// SupportedLanguages is the fixed set of language tags a snippet may carry.
// The list is part of the API contract: search filters and snippet writes
// reject anything outside it.
var SupportedLanguages = []string{
	"javascript",
	"typescript",
	"python",
	"go",
	"rust",
	"java",
	"c",
	"cpp",
	"csharp",
	"php",
	"ruby",
	"swift",
	"kotlin",
	"scala",
	"r",
	"sql",
	"html",
	"css",
	"scss",
	"json",
	"yaml",
	"markdown",
	"bash",
	"shell",
	"powershell",
	"dockerfile",
	"graphql",
	"prisma",
	"toml",
	"xml",
	"plaintext",
}

var supportedLanguageSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SupportedLanguages))
	for _, l := range SupportedLanguages {
		set[l] = struct{}{}
	}
	return set
}()

// IsSupportedLanguage reports whether lang is one of SupportedLanguages.
func IsSupportedLanguage(lang string) bool {
	_, ok := supportedLanguageSet[lang]
	return ok
}
