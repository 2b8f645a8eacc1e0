//go:build linux

package reactor

import (
	"os"
	"syscall"
	"time"
)

func newFileInfo(fi os.FileInfo) FileInfo {
	info := FileInfo{
		Size:  fi.Size(),
		Mode:  fi.Mode(),
		Mtime: fi.ModTime(),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		info.Atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
		info.Ctime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info
}
