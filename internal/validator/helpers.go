package validator

import (
	"slices"
	"strings"
	"unicode/utf8"
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

func In[T comparable](value T, safelist ...T) bool {
	return slices.Contains(safelist, value)
}
