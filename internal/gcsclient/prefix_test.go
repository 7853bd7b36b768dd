package gcsclient

import "testing"

func TestPrefixObjectName(t *testing.T) {
	cases := []struct {
		prefix, key, want string
	}{
		{"", "hello", "hello"},
		{"", "/hello", "/hello"},
		{"prefix", "hello", "prefix/hello"},
		{"/prefix/hello", "world", "prefix/hello/world"},
	}
	for _, tc := range cases {
		got := NewPrefix(tc.prefix).ObjectName(tc.key)
		if got != tc.want {
			t.Errorf("NewPrefix(%q).ObjectName(%q) = %q, want %q", tc.prefix, tc.key, got, tc.want)
		}
	}
}

func TestPrefixRelativeKey(t *testing.T) {
	cases := []struct {
		prefix, name, want string
	}{
		{"", "hello", "hello"},
		{"/prefix", "prefix/hello", "hello"},
		{"prefix", "prefix/hello", "hello"},
		{"prefix/hello", "prefix/hello/world", "world"},
		{"prefix/", "prefix/hello/world", "hello/world"},
	}
	for _, tc := range cases {
		got := NewPrefix(tc.prefix).RelativeKey(tc.name)
		if got != tc.want {
			t.Errorf("NewPrefix(%q).RelativeKey(%q) = %q, want %q", tc.prefix, tc.name, got, tc.want)
		}
	}
}

func TestPrefixListValueNeverForcesTrailingSlash(t *testing.T) {
	if got := NewPrefix("pfx").ListValue(); got != "pfx" {
		t.Errorf("ListValue() = %q, want %q (no forced trailing slash)", got, "pfx")
	}
}
