package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultDataRoot = "/var/lib/secops"
	ConfigFileName  = "default.yaml"
)

// ResolveDataRoot returns the directory that holds config, the audit spool and logs.
func ResolveDataRoot() string {
	root := os.Getenv("SECOPS_DATA_ROOT")
	if root == "" {
		root = DefaultDataRoot
	}
	return root
}

// ResolveConfigPath prefers customPath, then ./config/default.yaml, then the data root copy.
func ResolveConfigPath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	local := filepath.Join("config", ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(ResolveDataRoot(), "config", ConfigFileName)
}

// AuditSpoolDir is where undeliverable audit events are written.
func AuditSpoolDir() string {
	return filepath.Join(ResolveDataRoot(), "audit_spool")
}

// EnsureDirs creates the standard data subdirectories if they don't exist.
func EnsureDirs() error {
	dataRoot := ResolveDataRoot()
	subdirs := []string{
		"config",
		"logs",
		"audit_spool",
	}

	for _, sub := range subdirs {
		path, err := SafeJoin(dataRoot, sub)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(path, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}
	return nil
}

// SafeJoin joins path elements and ensures the result is within the base directory (no traversal).
func SafeJoin(base string, elements ...string) (string, error) {
	for _, el := range elements {
		if filepath.IsAbs(el) {
			return "", fmt.Errorf("path traversal attempt detected: absolute path not allowed in elements: %s", el)
		}
	}
	joined := filepath.Join(append([]string{base}, elements...)...)

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}

	if absJoined != absBase && !strings.HasPrefix(absJoined, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt detected: %s is outside %s", absJoined, absBase)
	}
	return absJoined, nil
}
