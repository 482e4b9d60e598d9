package uast

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/php"
)

// LanguagePHP is the only language the front-end lowers.
const LanguagePHP = "php"

// phpExtensions lists file extensions parsed as PHP.
var phpExtensions = []string{".php", ".phtml", ".inc"}

var phpLanguage = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(php.GetLanguage())
})

// IsSupported reports whether filename has a PHP extension.
func IsSupported(filename string) bool {
	return slices.Contains(phpExtensions, strings.ToLower(filepath.Ext(filename)))
}

// Extensions returns the supported file extensions.
func Extensions() []string {
	return slices.Clone(phpExtensions)
}
