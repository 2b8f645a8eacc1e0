//go:build !linux

package reactor

import "os"

func newFileInfo(fi os.FileInfo) FileInfo {
	// no portable access/change timestamps; fall back to mtime
	return FileInfo{
		Size:  fi.Size(),
		Mode:  fi.Mode(),
		Atime: fi.ModTime(),
		Mtime: fi.ModTime(),
		Ctime: fi.ModTime(),
	}
}
