package adapter

import (
	"path/filepath"
	"strings"

	"github.com/echosoundlab/sessionguard/internal/capability"
)

// executableExtensions marks destinations whose content would be executable:
// shell and batch scripts, compiled bundles and libraries, interpreter
// sources. Writing one is rejected before any capability check, a hard
// constraint no grant can override. Audio and project formats never appear
// here.
var executableExtensions = map[string]bool{
	".sh": true, ".bash": true, ".zsh": true, ".fish": true,
	".bat": true, ".cmd": true, ".ps1": true, ".vbs": true, ".wsf": true,
	".exe": true, ".com": true, ".msi": true, ".scr": true,
	".dll": true, ".so": true, ".dylib": true, ".app": true, ".jar": true,
	".py": true, ".rb": true, ".pl": true, ".php": true, ".js": true,
}

// IsExecutablePath reports whether the destination's extension marks
// executable content.
func IsExecutablePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return executableExtensions[ext]
}

// WriteRequest builds the file-write request for an arbitrary destination.
// Executable destinations are a structural violation, rejected before the
// request could ever reach a capability check.
func (ad *Adapter) WriteRequest(path, purpose string) (capability.Request, error) {
	req := capability.Request{
		Capability: capability.FileWrite,
		Scope:      capability.Scope{AppID: ad.appID, ResourceIDs: []string{path}},
		Reason:     "file write: " + purpose,
	}

	if IsExecutablePath(path) {
		return capability.Request{}, ad.violation("executable_write",
			"destination "+path+" has an executable extension", req)
	}

	return req, nil
}
