//go:build windows

package fileutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

func isOwnerOnly(perm os.FileMode) bool {
	return perm&0o077 == 0
}

// currentUserDACL grants GENERIC_ALL to the current user only. Directory
// entries are inherited by their children.
func currentUserDACL(dir bool) (*windows.ACL, error) {
	user, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return nil, fmt.Errorf("get current user SID: %w", err)
	}
	var inherit uint32 = windows.NO_INHERITANCE
	if dir {
		inherit = windows.CONTAINER_INHERIT_ACE | windows.OBJECT_INHERIT_ACE
	}
	return windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       inherit,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(user.User.Sid),
		},
	}}, nil)
}

func applyDACL(path string, dir bool) {
	acl, err := currentUserDACL(dir)
	if err == nil {
		err = windows.SetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
			windows.DACL_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION,
			nil, nil, acl, nil)
	}
	if err != nil {
		slog.Warn("fileutil: best-effort DACL failed", "path", path, "err", err)
	}
}

func restrict(path string, perm os.FileMode) error {
	if err := os.Chmod(path, perm); err != nil {
		return err
	}
	if isOwnerOnly(perm) {
		applyDACL(path, false)
	}
	return nil
}

func secureMkdirAll(path string, perm os.FileMode) error {
	var created []string
	if isOwnerOnly(perm) {
		for p := filepath.Clean(path); ; {
			if _, err := os.Stat(p); err == nil {
				break
			}
			created = append(created, p)
			parent := filepath.Dir(p)
			if parent == p {
				break
			}
			p = parent
		}
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	for _, dir := range created {
		applyDACL(dir, true)
	}
	return nil
}
