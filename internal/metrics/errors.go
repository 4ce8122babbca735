package metrics

import (
	"fmt"
	"strings"
	"unicode"
)

var friendlyKinds = map[string]string{
	"connect_timeout": "Connect timeout",
	"handshake":       "Handshake rejected",
	"tls":             "TLS failure",
	"dial":            "Dial failure",
	"canceled":        "Canceled",
	"closed":          "Connection closed",
	"unknown":         "Unknown error",
}

// TypeKind derives an error kind from the dynamic type of err, for errors
// that fall outside the well-known kinds. "*net.OpError" becomes
// "net_op_error".
func TypeKind(err error) string {
	if err == nil {
		return ""
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}

	pkg := ""
	if idx := strings.Index(name, "."); idx != -1 {
		pkg = name[:idx]
		name = name[idx+1:]
	}

	words := splitTypeName(name)
	if pkg != "" && pkg != "main" && (len(words) == 0 || words[0] != pkg) {
		words = append([]string{pkg}, words...)
	}
	if len(words) == 0 {
		return "unknown"
	}
	return strings.Join(words, "_")
}

// FriendlyKind returns a human label for an error kind.
func FriendlyKind(kind string) string {
	cleaned := strings.TrimSpace(kind)
	if cleaned == "" {
		return friendlyKinds["unknown"]
	}
	if alias, ok := friendlyKinds[cleaned]; ok {
		return alias
	}
	parts := strings.Split(cleaned, "_")
	for i, p := range parts {
		if i == 0 {
			parts[i] = capitalize(p)
		}
	}
	return strings.Join(parts, " ")
}

// splitTypeName breaks a Go identifier into lower-case words at case and
// digit boundaries, keeping acronyms together: "OpError" -> [op error],
// "TLSRecordError" -> [tls record error].
func splitTypeName(name string) []string {
	if name == "" {
		return nil
	}

	var words []string
	var current []rune
	runes := []rune(name)

	appendWord := func() {
		if len(current) == 0 {
			return
		}
		words = append(words, strings.ToLower(string(current)))
		current = current[:0]
	}

	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsUpper(r) && (unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower)) {
				appendWord()
			} else if unicode.IsDigit(r) && !unicode.IsDigit(prev) {
				appendWord()
			}
		}
		current = append(current, r)
	}
	appendWord()

	return words
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
