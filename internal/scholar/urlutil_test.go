package scholar

import "testing"

func TestAsInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{" 42 ", 42, true},
		{"-7", -7, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12a", 0, false},
		{"1,234", 0, false},
	}
	for _, tt := range tests {
		got, ok := asInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("asInt(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolveURL(t *testing.T) {
	const site = "https://scholar.google.com"
	tests := []struct {
		name string
		site string
		path string
		want string
	}{
		{"relative with slash", site, "/scholar?cites=1", site + "/scholar?cites=1"},
		{"relative without slash", site, "scholar?cites=1", site + "/scholar?cites=1"},
		{"site with trailing slash", site + "/", "/x", site + "/x"},
		{"absolute http", site, "http://other.org/p", "http://other.org/p"},
		{"absolute https", site, "https://other.org/p", "https://other.org/p"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveURL(tt.site, tt.path); got != tt.want {
				t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.site, tt.path, got, tt.want)
			}
		})
	}
}

func TestStripQueryArg(t *testing.T) {
	tests := []struct {
		name string
		url  string
		arg  string
		want string
	}{
		{"middle segment", "x?a=1&num=20&b=2", "num", "x?a=1&b=2"},
		{"only segment", "x?num=20", "num", "x?"},
		{"repeated segment", "x?num=1&a=2&num=3", "num", "x?a=2"},
		{"absent segment", "x?a=1&b=2", "num", "x?a=1&b=2"},
		{"no query part", "x", "num", "x"},
		{"name prefix not removed", "x?number=5&a=1", "num", "x?number=5&a=1"},
		{"valueless segment", "x?num&a=1", "num", "x?a=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripQueryArg(tt.url, tt.arg); got != tt.want {
				t.Errorf("stripQueryArg(%q, %q) = %q, want %q", tt.url, tt.arg, got, tt.want)
			}
		})
	}
}

func TestQueryArg(t *testing.T) {
	tests := []struct {
		url  string
		arg  string
		want string
	}{
		{"x?cites=123&hl=en", "cites", "123"},
		{"x?hl=en", "cites", ""},
		{"x", "cites", ""},
		{"x?cites=1&cites=2", "cites", "1"},
		{"x?cites=5843932058726082, 8&hl=en", "cites", "5843932058726082, 8"},
	}
	for _, tt := range tests {
		if got := queryArg(tt.url, tt.arg); got != tt.want {
			t.Errorf("queryArg(%q, %q) = %q, want %q", tt.url, tt.arg, got, tt.want)
		}
	}
}

func TestQueryURL(t *testing.T) {
	q := Query{Text: "deep learning", ResultsPerPage: 20, Lang: "en"}
	got := q.URL("https://scholar.google.com", 0)
	want := "https://scholar.google.com/scholar?hl=en&num=20&q=deep+learning"
	if got != want {
		t.Errorf("page 0 URL = %q, want %q", got, want)
	}

	got = q.URL("https://scholar.google.com/", 2)
	want = "https://scholar.google.com/scholar?hl=en&num=20&q=deep+learning&start=40"
	if got != want {
		t.Errorf("page 2 URL = %q, want %q", got, want)
	}
}

func TestQueryURLAuthorAndYears(t *testing.T) {
	q := Query{Text: "nets", Author: "Y LeCun", YearFrom: 1990, YearTo: 2000}
	got := q.URL("https://scholar.google.com", 0)
	want := "https://scholar.google.com/scholar?as_yhi=2000&as_ylo=1990&hl=en&num=10&q=nets+author%3A%22Y+LeCun%22"
	if got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}
