package gcsclient

import "strings"

// Prefix reconciles two normalization rules that original_source and
// spec.md disagree on: the list-request prefix is used exactly as given
// (spec §4.A, "never injects a trailing slash if absent"), while mapping
// a RelativeKey to a full object name does join with "/" (gcs-rsync's
// ObjectPrefix::as_object).
type Prefix struct {
	raw string
}

func NewPrefix(raw string) Prefix {
	return Prefix{raw: strings.TrimPrefix(raw, "/")}
}

// ListValue is the exact string sent as the `prefix` query parameter.
func (p Prefix) ListValue() string { return p.raw }

// ObjectName maps a RelativeKey to the full object name under this prefix.
func (p Prefix) ObjectName(key string) string {
	if p.raw == "" {
		return key
	}
	if strings.HasSuffix(p.raw, "/") {
		return p.raw + key
	}
	return p.raw + "/" + key
}

// RelativeKey strips this prefix from a full object name returned by a
// list/get response, yielding the key relative to the sync root.
func (p Prefix) RelativeKey(objectName string) string {
	base := p.raw
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return strings.TrimPrefix(objectName, base)
}
