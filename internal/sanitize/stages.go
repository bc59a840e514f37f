package sanitize

import (
	"regexp"
	"strings"
)

var (
	fenceRe           = regexp.MustCompile("```(?:json)?([\\s\\S]*?)```")
	backslashRunRe    = regexp.MustCompile(`\\+`)
	controlRe         = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}]`)
	invalidEscapeRe   = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
	doubleBackslashRe = regexp.MustCompile(`\\\\+`)
)

// ExtractFence returns the trimmed body of the first fenced code block, with or
// without a json language tag. Text without a complete fence is returned as is.
func ExtractFence(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	m := fenceRe.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return s
	}
	return strings.TrimSpace(m[1])
}

// CollapseBackslashes replaces every run of backslashes with a single one.
func CollapseBackslashes(s string) string {
	return backslashRunRe.ReplaceAllLiteralString(s, `\`)
}

// StripControl removes C0 and C1 control characters, including raw newlines.
func StripControl(s string) string {
	return controlRe.ReplaceAllLiteralString(s, "")
}

// DropInvalidEscapes removes the backslash from any escape JSON does not define.
func DropInvalidEscapes(s string) string {
	return invalidEscapeRe.ReplaceAllString(s, "${1}")
}

// EscapeDoubledBackslashes normalises runs of two or more backslashes to an
// escaped backslash pair.
func EscapeDoubledBackslashes(s string) string {
	return doubleBackslashRe.ReplaceAllLiteralString(s, `\\`)
}

// UnescapeQuotedStructure undoes a whole-document quote escape such as
// {\"a\":1}, which models emit when they return JSON encoded as a string. Text
// that does not open with an escaped key is returned unchanged.
func UnescapeQuotedStructure(s string) string {
	t := strings.TrimSpace(s)
	t = strings.TrimLeft(t, "[{ ")
	if !strings.HasPrefix(t, `\"`) {
		return s
	}
	return strings.ReplaceAll(s, `\"`, `"`)
}

// EscapeNewlines turns literal line feeds into the two-character \n escape.
func EscapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", `\n`)
}
