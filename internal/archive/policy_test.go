package archive

import (
	"reflect"
	"testing"
)

func TestNormalizeExtensions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "html htm", want: []string{"html", "htm"}},
		{in: "html,htm", want: []string{"html", "htm"}},
		{in: "html, htm ,  css", want: []string{"html", "htm", "css"}},
		{in: "HTML .Css html", want: []string{"html", "css"}},
		{in: "", want: nil},
		{in: " , ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeExtensions(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeExtensions(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if len(p.AllowedExtensions) != 23 {
		t.Errorf("len(AllowedExtensions) = %d, want 23", len(p.AllowedExtensions))
	}
	if !reflect.DeepEqual(p.AllowedStrayRootDirs, []string{"__MACOSX"}) {
		t.Errorf("AllowedStrayRootDirs = %v, want [__MACOSX]", p.AllowedStrayRootDirs)
	}
	if err := p.Check(); err != nil {
		t.Errorf("Check() error = %v", err)
	}
}

func TestPolicy_Check(t *testing.T) {
	withPathLength := func(n int) Policy {
		p := DefaultPolicy()
		p.MaxPathLength = n
		return p
	}

	tests := []struct {
		name    string
		policy  Policy
		wantErr string
	}{
		{name: "default", policy: DefaultPolicy()},
		{name: "shorter path length", policy: withPathLength(100)},
		{
			name:    "denied extensions",
			policy:  Policy{AllowedExtensions: []string{"html", "EXE", "bmp"}, MaxPathLength: 100},
			wantErr: "extensions EXE, bmp are not allowed",
		},
		{
			name:    "no extensions",
			policy:  Policy{AllowedExtensions: NormalizeExtensions(","), MaxPathLength: 100},
			wantErr: "no allowed extensions",
		},
		{
			name:    "path length above budget",
			policy:  withPathLength(5000),
			wantErr: "max path length 5000 must be between 1 and 1986",
		},
		{
			name:    "zero path length",
			policy:  withPathLength(0),
			wantErr: "max path length 0 must be between 1 and 1986",
		},
		{
			name:    "budget defaults to the bare ceiling",
			policy:  Policy{AllowedExtensions: []string{"html"}, MaxPathLength: 2011},
			wantErr: "max path length 2011 must be between 1 and 2010",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Check() error = %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Check() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewPolicy(t *testing.T) {
	p := NewPolicy("private://", "sites")
	if want := 2048 - len("private://") - len("sites") - 38; p.MaxPathLength != want || p.PathBudget != want {
		t.Errorf("NewPolicy() path length = %d, budget = %d, want %d", p.MaxPathLength, p.PathBudget, want)
	}
}

func TestPolicy_AllowsExtension_denied(t *testing.T) {
	for _, p := range []Policy{{}, {AllowedExtensions: []string{"exe", "scr", "bmp"}}} {
		for _, name := range []string{"a.exe", "a.SCR", "dir/a.bmp"} {
			if p.AllowsExtension(name) {
				t.Errorf("AllowsExtension(%q) with %v = true, want false", name, p.AllowedExtensions)
			}
		}
	}
}

func TestPolicy_AllowsExtension(t *testing.T) {
	p := Policy{AllowedExtensions: []string{"html", "css"}}
	tests := []struct {
		name string
		want bool
	}{
		{"site/index.html", true},
		{"site/STYLE.CSS", true},
		{"site/file.txt", false},
		{"site/html", false},
		{"site/archive.html.exe", false},
		{"site/evil.exe", false},
	}
	for _, tt := range tests {
		if got := p.AllowsExtension(tt.name); got != tt.want {
			t.Errorf("AllowsExtension(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
