package upload

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ContentIDLength is the length of a base64url-encoded content id.
const ContentIDLength = 43

// Extraction holds the ids recognized in an upload tool's output. Fields a
// strategy could not find are left empty.
type Extraction struct {
	ManifestID    string
	TransactionID string
	BundleID      string
}

// ContentID returns the top-level address of the upload.
func (e Extraction) ContentID() string {
	if e.ManifestID != "" {
		return e.ManifestID
	}
	return e.TransactionID
}

func (e Extraction) empty() bool {
	return e.ManifestID == "" && e.TransactionID == "" && e.BundleID == ""
}

// Extractor is one named, pure strategy for recognizing ids in tool output.
type Extractor struct {
	Name    string
	Extract func(output string) (Extraction, bool)
}

// DefaultExtractors are tried in order: structured output first, then text
// patterns from most to least specific.
var DefaultExtractors = []Extractor{
	{Name: "json", Extract: ExtractJSON},
	{Name: "gateway-url", Extract: ExtractGatewayURL},
	{Name: "bundle-literal", Extract: ExtractBundleLiteral},
	{Name: "bare-id", Extract: ExtractBareID},
}

// Extract applies extractors in order. Each field takes the value from the
// first extractor that sets it. It never fails: unrecognized output yields
// an empty Extraction.
func Extract(output string, extractors ...Extractor) Extraction {
	if len(extractors) == 0 {
		extractors = DefaultExtractors
	}
	var out Extraction
	for _, ex := range extractors {
		got, ok := ex.Extract(output)
		if !ok {
			continue
		}
		if out.ManifestID == "" {
			out.ManifestID = got.ManifestID
		}
		if out.TransactionID == "" {
			out.TransactionID = got.TransactionID
		}
		if out.BundleID == "" {
			out.BundleID = got.BundleID
		}
	}
	return out
}

// ExtractJSON recognizes a JSON object, either the whole output or the
// outermost braces within it.
func ExtractJSON(output string) (Extraction, bool) {
	s := strings.TrimSpace(output)
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return Extraction{}, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return Extraction{}, false
	}

	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := obj[k].(string); ok && IsContentID(v) {
				return v
			}
		}
		return ""
	}
	ex := Extraction{
		ManifestID:    str("manifestId", "manifest_id"),
		TransactionID: str("id", "transactionId", "txId", "tx_id"),
		BundleID:      str("bundleId", "bundle_id"),
	}
	return ex, !ex.empty()
}

var gatewayURLPattern = regexp.MustCompile(`https?://[^\s/'"]+/([A-Za-z0-9_-]{43})(?:[^A-Za-z0-9_-]|$)`)

// ExtractGatewayURL recognizes a gateway link. The linked id is the
// deployment's address, so it is reported as both manifest and transaction.
func ExtractGatewayURL(output string) (Extraction, bool) {
	m := gatewayURLPattern.FindStringSubmatch(output)
	if m == nil {
		return Extraction{}, false
	}
	return Extraction{ManifestID: m[1], TransactionID: m[1]}, true
}

var bundleLiteralPattern = regexp.MustCompile(`bundle[_-]?[Ii][Dd]['"]?\s*[:=]\s*['"]([A-Za-z0-9_-]{43})['"]`)

// ExtractBundleLiteral recognizes a printed object literal such as
// { bundleId: '...' }.
func ExtractBundleLiteral(output string) (Extraction, bool) {
	m := bundleLiteralPattern.FindStringSubmatch(output)
	if m == nil {
		return Extraction{}, false
	}
	return Extraction{BundleID: m[1]}, true
}

// ExtractBareID takes the last standalone id-shaped token as the transaction.
func ExtractBareID(output string) (Extraction, bool) {
	tokens := idTokens(output)
	if len(tokens) == 0 {
		return Extraction{}, false
	}
	return Extraction{TransactionID: tokens[len(tokens)-1]}, true
}

// IsContentID reports whether s has the shape of a content id.
func IsContentID(s string) bool {
	if len(s) != ContentIDLength {
		return false
	}
	for _, r := range s {
		if !isIDRune(r) {
			return false
		}
	}
	return true
}

func isIDRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
}

// idTokens returns every maximal run of id characters that is exactly one
// id long.
func idTokens(s string) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return !isIDRune(r) }) {
		if len(tok) == ContentIDLength {
			out = append(out, tok)
		}
	}
	return out
}
