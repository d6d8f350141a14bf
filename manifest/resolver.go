package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("stackfx.manifest")

// ResolvedDep represents a dependency that has been resolved to a local path.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // local filesystem path
	Manifest  *Manifest // the dependency's own manifest (may be nil)
	Source    Dependency
}

// Resolver manages dependency resolution.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies and returns them in load order
// (dependencies before dependents).
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	if len(r.manifest.Dependencies) == 0 {
		return nil, nil
	}

	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock

	resolved := make(map[string]*ResolvedDep)
	order, err := r.resolveAll(r.manifest, resolved, map[string]bool{})
	if err != nil {
		return nil, err
	}

	if err := r.writeLock(order); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return order, nil
}

// resolveAll resolves the dependencies of m recursively, in name order.
// visiting holds the dependencies on the current path, to catch cycles.
func (r *Resolver) resolveAll(m *Manifest, resolved map[string]*ResolvedDep, visiting map[string]bool) ([]ResolvedDep, error) {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var order []ResolvedDep
	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue // already resolved
		}
		if visiting[name] {
			return nil, fmt.Errorf("dependency cycle through %s", name)
		}

		rd, err := r.resolveOne(m, name, m.Dependencies[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			visiting[name] = true
			transitive, err := r.resolveAll(rd.Manifest, resolved, visiting)
			delete(visiting, name)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}

		resolved[name] = rd
		order = append(order, *rd)
	}
	return order, nil
}

// resolveOne resolves a single dependency declared by owner.
func (r *Resolver) resolveOne(owner *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	switch {
	case dep.Path != "":
		localPath, err := filepath.Abs(owner.resolve(dep.Path))
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
		}
		if _, err := os.Stat(localPath); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}
		return &ResolvedDep{Name: name, LocalPath: localPath, Manifest: loadOptional(localPath), Source: dep}, nil

	case dep.Git != "":
		depDir := filepath.Join(r.manifest.DepsDir(), name)
		if _, err := os.Stat(depDir); os.IsNotExist(err) {
			log.Infof("cloning %s from %s", name, dep.Git)
			if err := os.MkdirAll(r.manifest.DepsDir(), 0o755); err != nil {
				return nil, fmt.Errorf("creating deps dir: %w", err)
			}
			if err := gitClone(dep.Git, depDir); err != nil {
				return nil, err
			}
		} else if locked := r.lock.FindLockedDep(name); locked == nil || locked.Tag != dep.Tag {
			log.Infof("fetching %s", name)
			if err := gitFetch(depDir); err != nil {
				return nil, err
			}
		}

		if dep.Tag != "" {
			if err := gitCheckout(depDir, dep.Tag); err != nil {
				return nil, err
			}
		}
		return &ResolvedDep{Name: name, LocalPath: depDir, Manifest: loadOptional(depDir), Source: dep}, nil
	}

	return nil, fmt.Errorf("dependency %q has no git or path specified", name)
}

// loadOptional loads the manifest in dir, or returns nil if there is none
// or it cannot be read.
func loadOptional(dir string) *Manifest {
	m, err := Load(dir)
	if err != nil {
		return nil
	}
	return m
}

// writeLock writes the resolved dependencies to the lock file.
func (r *Resolver) writeLock(order []ResolvedDep) error {
	lf := &LockFile{}
	for _, rd := range order {
		ld := LockedDep{Name: rd.Name}
		dep := rd.Source
		switch {
		case dep.Git != "":
			ld.Git = dep.Git
			ld.Tag = dep.Tag
			if commit, err := gitCurrentCommit(rd.LocalPath); err == nil {
				ld.Commit = commit
			}
		case dep.Path != "":
			ld.Path = dep.Path
		}
		lf.Deps = append(lf.Deps, ld)
	}

	if err := os.MkdirAll(filepath.Dir(r.manifest.LockFilePath()), 0o755); err != nil {
		return err
	}
	return WriteLock(r.manifest.LockFilePath(), lf)
}

// NamespaceFiles returns every namespace file to load for the project:
// those of its dependencies in load order, then its own.
func NamespaceFiles(m *Manifest, deps []ResolvedDep) []string {
	var paths []string
	for _, rd := range deps {
		if rd.Manifest != nil {
			paths = append(paths, rd.Manifest.NamespacePaths()...)
		}
	}
	return append(paths, m.NamespacePaths()...)
}
