package fs

import (
	"context"
	"os"
	"syscall"
	"testing"

	"bazil.org/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestView(t *testing.T) *View {
	t.Helper()
	mem := NewMemoryProvider()
	require.NoError(t, mem.AddFile("/top.txt"))
	require.NoError(t, mem.AddDir("/mnt/view"))
	require.NoError(t, mem.AddFile("/mnt/view/inside.txt"))

	resolver := setupWorkingResolver(t, Options{RootProvider: mem})
	return NewView(resolver)
}

func TestViewOperations(t *testing.T) {
	view := setupTestView(t)
	ctx := context.Background()

	// Test root directory
	t.Run("RootDirectory", func(t *testing.T) {
		root, err := view.Root()
		require.NoError(t, err)

		attr := &fuse.Attr{}
		require.NoError(t, root.Attr(ctx, attr))
		assert.NotZero(t, attr.Mode&os.ModeDir, "root should be a directory")
		assert.Equal(t, view.uid, attr.Uid)
		assert.Equal(t, view.gid, attr.Gid)
	})

	// Test lookup through a mount
	t.Run("LookupMountedFile", func(t *testing.T) {
		root, _ := view.Root()

		working, err := root.(*Dir).Lookup(ctx, "working")
		require.NoError(t, err)
		workingDir, ok := working.(*Dir)
		require.True(t, ok, "mounted directory should be a Dir")

		node, err := workingDir.Lookup(ctx, "hello.txt")
		require.NoError(t, err)
		file, ok := node.(*File)
		require.True(t, ok, "hello.txt should be a File")
		assert.Equal(t, KindFile, file.kind)

		attr := &fuse.Attr{}
		require.NoError(t, node.Attr(ctx, attr))
		assert.Zero(t, attr.Mode&os.ModeDir)
		assert.Equal(t, os.FileMode(0444), attr.Mode.Perm())
	})

	// Test lookup on the root provider
	t.Run("LookupRootProvider", func(t *testing.T) {
		root, _ := view.Root()

		node, err := root.(*Dir).Lookup(ctx, "top.txt")
		require.NoError(t, err)
		assert.IsType(t, &File{}, node)
	})

	// Test missing entries
	t.Run("LookupMissing", func(t *testing.T) {
		root, _ := view.Root()

		_, err := root.(*Dir).Lookup(ctx, "nope.txt")
		assert.Equal(t, syscall.ENOENT, err)

		working, err := root.(*Dir).Lookup(ctx, "working")
		require.NoError(t, err)
		_, err = working.(*Dir).Lookup(ctx, "missing.txt")
		assert.Equal(t, syscall.ENOENT, err)
	})

	// Test the view hides its own mount point
	t.Run("LookupInsideMountPoint", func(t *testing.T) {
		root, _ := view.Root()
		mnt, err := root.(*Dir).Lookup(ctx, "mnt")
		require.NoError(t, err)

		_, err = mnt.(*Dir).Lookup(ctx, "view")
		require.NoError(t, err, "visible while the view is not mounted there")

		view.mu.Lock()
		view.mountPoint = MustNormalize("/mnt/view")
		view.mu.Unlock()
		defer func() {
			view.mu.Lock()
			view.mountPoint = Path{}
			view.mu.Unlock()
		}()

		_, err = mnt.(*Dir).Lookup(ctx, "view")
		assert.Equal(t, syscall.ENOENT, err)
	})
}

func TestViewUsesEnvironmentIDs(t *testing.T) {
	t.Setenv("PUID", "1234")
	t.Setenv("PGID", "5678")

	view := NewView(NewResolver(nil, Options{RootProvider: NewMemoryProvider()}))
	assert.Equal(t, uint32(1234), view.uid)
	assert.Equal(t, uint32(5678), view.gid)
}

func TestViewWaitBeforeMount(t *testing.T) {
	view := NewView(NewResolver(nil, Options{RootProvider: NewMemoryProvider()}))
	assert.NoError(t, view.Wait())
	assert.NoError(t, view.Unmount())
}
