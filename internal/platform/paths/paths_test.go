package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDataRoot(t *testing.T) {
	t.Setenv("SECOPS_DATA_ROOT", "")
	assert.Equal(t, DefaultDataRoot, ResolveDataRoot())

	t.Setenv("SECOPS_DATA_ROOT", "/srv/secops")
	assert.Equal(t, "/srv/secops", ResolveDataRoot())
	assert.Equal(t, "/srv/secops/audit_spool", AuditSpoolDir())
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/secops.yaml", ResolveConfigPath("/etc/secops.yaml"))

	root := t.TempDir()
	t.Setenv("SECOPS_DATA_ROOT", root)
	wd, _ := os.Getwd()
	// no ./config/default.yaml next to this package
	if _, err := os.Stat(filepath.Join(wd, "config", ConfigFileName)); os.IsNotExist(err) {
		assert.Equal(t, filepath.Join(root, "config", ConfigFileName), ResolveConfigPath(""))
	}
}

func TestSafeJoin(t *testing.T) {
	base := "/var/lib/secops"

	cases := []struct {
		name     string
		elements []string
		valid    bool
	}{
		{"normal", []string{"logs", "app.log"}, true},
		{"parent", []string{"..", "other"}, false},
		{"nested_parent", []string{"logs", "..", "..", "secrets"}, false},
		{"sibling prefix", []string{"..", "secops-other"}, false},
		{"absolute", []string{"/etc/passwd"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := SafeJoin(base, tc.elements...)
			if tc.valid {
				assert.NoError(t, err)
				assert.Contains(t, res, base)
			} else {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), "traversal")
				}
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	tmpRoot := t.TempDir()
	t.Setenv("SECOPS_DATA_ROOT", tmpRoot)

	err := EnsureDirs()
	assert.NoError(t, err)

	for _, sub := range []string{"config", "logs", "audit_spool"} {
		_, err := os.Stat(filepath.Join(tmpRoot, sub))
		assert.NoError(t, err, "subdirectory %s should exist", sub)
	}
}
