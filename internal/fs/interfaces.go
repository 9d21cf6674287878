// internal/fs/interfaces.go

package fs

import (
	"bazil.org/fuse/fs"
)

// Node represents a node (file or directory) in the existence view
type Node interface {
	fs.Node
}

// Directory represents a directory in the existence view
type Directory interface {
	Node
	fs.NodeStringLookuper
}

var (
	_ fs.FS     = (*View)(nil)
	_ Directory = (*Dir)(nil)
	_ Node      = (*File)(nil)

	_ KindProvider = (*NativeProvider)(nil)
	_ KindProvider = (*DirectoryMirrorProvider)(nil)
	_ KindProvider = (*MemoryProvider)(nil)

	_ SymlinkProvider = (*NativeProvider)(nil)
	_ SymlinkProvider = (*DirectoryMirrorProvider)(nil)
)
