package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://www.coupang.com/vp/products/123",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestBaseAddress(t *testing.T) {
	tests := map[string]string{
		"https://www.coupang.com/np/search?q=tv":  "https://www.coupang.com",
		"HTTPS://WWW.Coupang.com/":                "https://www.coupang.com",
		"http://localhost:8080/a/b":               "http://localhost:8080",
		"https://m.coupang.com/nm/search?q=phone": "https://m.coupang.com",
	}
	for in, want := range tests {
		got, err := BaseAddress(in)
		if err != nil {
			t.Fatalf("BaseAddress(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("BaseAddress(%q) = %q, want %q", in, got, want)
		}
		again, err := BaseAddress(got)
		if err != nil || again != got {
			t.Errorf("BaseAddress not idempotent for %q: %q, %v", got, again, err)
		}
	}

	for _, in := range []string{"", "not a url", "/relative/path"} {
		if _, err := BaseAddress(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestSameHostAndResolve(t *testing.T) {
	if !SameHost("https://a.com/x", "https://a.com/y?z=1") {
		t.Error("expected same host")
	}
	if SameHost("https://a.com/x", "https://b.com/x") {
		t.Error("expected different hosts")
	}
	if got := ResolveURL("https://www.coupang.com/np/search", "/vp/products/1"); got != "https://www.coupang.com/vp/products/1" {
		t.Errorf("unexpected resolved URL %q", got)
	}
	got := ResolveAll("https://a.com/list", []string{"/p/1", "", "https://b.com/p/2"})
	if len(got) != 2 || got[0] != "https://a.com/p/1" || got[1] != "https://b.com/p/2" {
		t.Errorf("unexpected ResolveAll result %v", got)
	}
	if Hostname("https://WWW.coupang.com:443/x") != "www.coupang.com" {
		t.Error("unexpected hostname")
	}
}
