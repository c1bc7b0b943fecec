package config

import "testing"

func TestExpandWith(t *testing.T) {
	env := map[string]string{
		"GITHUB_TOKEN": "ghp_abc",
		"EMPTY":        "",
		"BUCKET":       "art-journal",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set", "token: ${GITHUB_TOKEN}", "token: ghp_abc"},
		{"unset", "token: ${NOPE}", "token: "},
		{"default when unset", "addr: ${ADDR:-127.0.0.1:8080}", "addr: 127.0.0.1:8080"},
		{"default ignored when set", "token: ${GITHUB_TOKEN:-none}", "token: ghp_abc"},
		{"default when empty", "v: ${EMPTY:-fallback}", "v: fallback"},
		{"empty default", "v: ${NOPE:-}", "v: "},
		{"multiple", "s3://${BUCKET}/${PREFIX:-paints}", "s3://art-journal/paints"},
		{"not a reference", "cost: $5 and $HOME", "cost: $5 and $HOME"},
		{"invalid name", "v: ${1ABC}", "v: ${1ABC}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandWith(tt.input, lookup); got != tt.want {
				t.Errorf("expandWith(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_ProcessEnvironment(t *testing.T) {
	t.Setenv("CONTRIBUART_TEST_VAR", "hello")
	if got := ExpandEnv("v: ${CONTRIBUART_TEST_VAR}"); got != "v: hello" {
		t.Errorf("got %q", got)
	}
}
