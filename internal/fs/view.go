package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"libfs/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	viewLogger = logging.GetLogger().WithPrefix("view")
)

// View exposes a Resolver as a read-only, lookup-only FUSE filesystem.
// Every lookup is answered by the resolver, so the mount table shows up
// on the host without copying anything.
type View struct {
	resolver   *Resolver
	mountPoint Path       // host mount point, zero until mounted
	conn       *fuse.Conn // FUSE connection
	uid        uint32     // User ID reported for every node
	gid        uint32     // Group ID reported for every node
	done       chan struct{}
	serveErr   error
	mu         sync.RWMutex
}

// NewView creates a FUSE view over resolver.
func NewView(resolver *Resolver) *View {
	// Get UID/GID from environment if set
	uid := safeIntToUint32(os.Getuid())
	gid := safeIntToUint32(os.Getgid())

	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			uid = uint32(puid)
			viewLogger.Debug("Using PUID from environment: %d", uid)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			gid = uint32(pgid)
			viewLogger.Debug("Using PGID from environment: %d", gid)
		}
	}

	return &View{
		resolver: resolver,
		uid:      uid,
		gid:      gid,
	}
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (v *View) Root() (fusefs.Node, error) {
	viewLogger.Trace("Getting root directory node")
	return &Dir{view: v, path: Root}, nil
}

// hidden reports whether p lies under the view's own mount point. Looking
// those up through a native root would re-enter the view.
func (v *View) hidden(p Path) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.mountPoint.IsZero() && p.hasSegmentPrefix(v.mountPoint)
}

func waitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

// Mount mounts the view at mountPoint and serves it in the background.
func (v *View) Mount(mountPoint string, allowOther bool) error {
	viewLogger.Info("Mounting existence view")
	viewLogger.Debug("Mount point: %s", mountPoint)
	viewLogger.Debug("UID: %d, GID: %d", v.uid, v.gid)

	absMount, err := filepath.Abs(mountPoint)
	if err != nil {
		return fmt.Errorf("resolve mount point: %w", err)
	}
	hostPath, err := Normalize(filepath.ToSlash(absMount))
	if err != nil {
		return err
	}

	mountOpts := []fuse.MountOption{
		fuse.FSName("libfs"),
		fuse.Subtype("libfs"),
		fuse.ReadOnly(),
		fuse.DefaultPermissions(),
	}
	if allowOther {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}

	c, err := fuse.Mount(absMount, mountOpts...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}

	v.mu.Lock()
	v.conn = c
	v.mountPoint = hostPath
	v.done = make(chan struct{})
	v.mu.Unlock()

	go func() {
		defer close(v.done)
		if err := fusefs.Serve(c, v); err != nil {
			viewLogger.Error("FUSE server error: %v", err)
			v.mu.Lock()
			v.serveErr = err
			v.mu.Unlock()
		}
		viewLogger.Debug("FUSE server stopped")
	}()

	// Wait for mount to be ready
	if err := waitForMount(absMount); err != nil {
		_ = fuse.Unmount(absMount)
		c.Close()
		viewLogger.Error("Mount point not ready: %v", err)
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}

	viewLogger.Info("Existence view mounted at %s", absMount)
	return nil
}

// Wait blocks until the FUSE server stops and returns its error, if any.
func (v *View) Wait() error {
	v.mu.RLock()
	done := v.done
	v.mu.RUnlock()
	if done == nil {
		return nil
	}

	<-done
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.serveErr
}

// Unmount cleanly unmounts the view and closes the connection.
func (v *View) Unmount() error {
	v.mu.RLock()
	conn := v.conn
	mountPoint := v.mountPoint
	v.mu.RUnlock()

	if conn == nil {
		return nil
	}

	viewLogger.Info("Unmounting view from: %s", mountPoint.String())
	err := fuse.Unmount(filepath.FromSlash(mountPoint.String()))
	if err != nil {
		viewLogger.Error("Unmount failed: %v", err)
		return err
	}
	viewLogger.Info("Unmount completed successfully")
	return conn.Close()
}
