// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"sdrfile"}, args...)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alt.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseArgsConfigFlag(t *testing.T) {
	path := writeConfig(t, "port: 9000\nfrequency: 1000000\n")

	withArgs(t, "--config", path)
	cfg, err := ParseArgs()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Port)
	}
	if cfg.Frequency != 1e6 {
		t.Errorf("frequency = %g, want 1e6", cfg.Frequency)
	}
}

func TestParseArgsFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, "port: 9000\nfrequency: 1000000\n")

	withArgs(t, "--config="+path, "--port", "9100")
	cfg, err := ParseArgs()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9100 {
		t.Errorf("port = %d, want flag value 9100", cfg.Port)
	}
	if cfg.Frequency != 1e6 {
		t.Errorf("frequency = %g, want file value 1e6", cfg.Frequency)
	}
}

func TestParseArgsMissingConfigFile(t *testing.T) {
	withArgs(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := ParseArgs(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigPathArg(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"--config", "a.yaml"}, "a.yaml"},
		{[]string{"--port", "9100", "--config=b.yaml"}, "b.yaml"},
		{[]string{"--port", "9100"}, ""},
		{[]string{"--config"}, ""},
	}
	for _, c := range cases {
		if got := configPathArg(c.args); got != c.want {
			t.Errorf("configPathArg(%v) = %q, want %q", c.args, got, c.want)
		}
	}
}
