package fs

import (
	"libfs/internal/logging"
)

var (
	resolverLogger = logging.GetLogger().WithPrefix("resolver")
)

// Options configures a Resolver
type Options struct {
	// RootProvider answers for paths no mount matches.
	// Defaults to a NativeProvider.
	RootProvider Provider
}

// Resolver is the public entry point for existence checks. It normalizes
// the input, picks a provider through the mount table and returns the
// provider's answer unchanged.
type Resolver struct {
	table *MountTable
	root  Provider
}

// NewResolver creates a resolver over table. A nil table is treated as
// an empty one.
func NewResolver(table *MountTable, opts Options) *Resolver {
	if table == nil {
		table = NewMountTable()
	}
	root := opts.RootProvider
	if root == nil {
		root = NewNativeProvider()
	}
	resolverLogger.Debug("Creating resolver with %d mounts, root provider %v", table.Len(), root)
	return &Resolver{
		table: table,
		root:  root,
	}
}

// Mount registers a provider under prefix. Mounts should be added before
// the resolver is shared.
func (r *Resolver) Mount(prefix string, provider Provider) error {
	return r.table.Add(prefix, provider)
}

// Table returns the mount table the resolver reads from
func (r *Resolver) Table() *MountTable {
	return r.table
}

// RootProvider returns the provider used when no mount matches
func (r *Resolver) RootProvider() Provider {
	return r.root
}

// route picks the provider and provider-relative path for raw
func (r *Resolver) route(raw string) (Provider, Path, error) {
	p, err := Normalize(raw)
	if err != nil {
		resolverLogger.Debug("Rejected path %q: %v", raw, err)
		return nil, Path{}, err
	}

	if provider, remainder, ok := r.table.Resolve(p); ok {
		return provider, remainder, nil
	}
	return r.root, p, nil
}

// Exists reports whether raw exists. A missing path is (false, nil);
// errors are returned for invalid input and for failures that leave
// existence undetermined.
func (r *Resolver) Exists(raw string) (bool, error) {
	provider, p, err := r.route(raw)
	if err != nil {
		return false, err
	}

	exists, err := provider.Exists(p)
	if err != nil {
		resolverLogger.Error("Existence check for %q failed: %v", raw, err)
		return false, err
	}
	resolverLogger.Debug("exists(%q) = %v", raw, exists)
	return exists, nil
}

// Kind reports what raw points to. Providers that cannot tell files from
// directories report KindOther for any existing path.
func (r *Resolver) Kind(raw string) (Kind, error) {
	provider, p, err := r.route(raw)
	if err != nil {
		return KindNone, err
	}

	var kind Kind
	if kp, ok := provider.(KindProvider); ok {
		kind, err = kp.Kind(p)
	} else {
		var exists bool
		exists, err = provider.Exists(p)
		if exists {
			kind = KindOther
		}
	}
	if err != nil {
		resolverLogger.Error("Kind check for %q failed: %v", raw, err)
		return KindNone, err
	}
	resolverLogger.Debug("kind(%q) = %v", raw, kind)
	return kind, nil
}

// IsDirectory reports whether raw is an existing directory
func (r *Resolver) IsDirectory(raw string) (bool, error) {
	kind, err := r.Kind(raw)
	return kind == KindDirectory, err
}

// IsFile reports whether raw is an existing regular file
func (r *Resolver) IsFile(raw string) (bool, error) {
	kind, err := r.Kind(raw)
	return kind == KindFile, err
}

// IsSymlink reports whether raw is itself a symbolic link. Providers
// without link support report false.
func (r *Resolver) IsSymlink(raw string) (bool, error) {
	provider, p, err := r.route(raw)
	if err != nil {
		return false, err
	}

	sp, ok := provider.(SymlinkProvider)
	if !ok {
		return false, nil
	}
	link, err := sp.IsSymlink(p)
	if err != nil {
		resolverLogger.Error("Symlink check for %q failed: %v", raw, err)
		return false, err
	}
	return link, nil
}
