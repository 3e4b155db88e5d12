// Package fileid identifies a file by (device, inode) so the agent can tell
// whether the descriptor it holds still points at the same file the path
// pointed at earlier, or whether the path has been rotated onto a new one.
package fileid

import (
	"fmt"
	"os"
	"syscall"
)

// FileIdentity is the pair that uniquely identifies an open file on a host.
type FileIdentity struct {
	Dev uint64
	Ino uint64
}

// Equal reports whether two identities refer to the same file.
func (f FileIdentity) Equal(other FileIdentity) bool {
	return f.Dev == other.Dev && f.Ino == other.Ino
}

// Zero reports whether the identity has never been set.
func (f FileIdentity) Zero() bool {
	return f.Dev == 0 && f.Ino == 0
}

func (f FileIdentity) String() string {
	return fmt.Sprintf("%d:%d", f.Dev, f.Ino)
}

// Of derives a FileIdentity from an os.FileInfo obtained via a POSIX stat.
// It fails if the platform does not expose *syscall.Stat_t through Sys().
func Of(info os.FileInfo) (FileIdentity, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return FileIdentity{}, fmt.Errorf("fileid: platform does not expose dev/inode via stat")
	}
	return FileIdentity{Dev: uint64(stat.Dev), Ino: stat.Ino}, nil
}
