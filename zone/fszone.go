// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zone

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/internal/logging"
)

var log = logging.For("zone")

const (
	valueExt = "bin"
	nodeExt  = "json"
)

// FSZone is the reference filesystem Zone backend. Per §6, values live
// under <root>/values/<key[..2]>/<key[2..]>/<ver[..1]>/<ver[1..]>.bin
// and map nodes under <root>/maps/<ver[..1]>/<ver[1..]>/<prefix-hex>.json,
// splitting both the key and the version id into a short prefix
// subdirectory and a remainder so that any one directory's entry
// count stays bounded for typical UUID-space distributions.
type FSZone struct {
	root string
}

var _ Zone = (*FSZone)(nil)

// Open returns an FSZone rooted at dir, creating it if necessary.
func Open(dir string) (*FSZone, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(err, "zone: create root")
	}
	return &FSZone{root: dir}, nil
}

func splitTwo(s string) (string, string) {
	if len(s) <= 2 {
		return s, "_"
	}
	return s[:2], s[2:]
}

func splitOne(s string) (string, string) {
	if len(s) <= 1 {
		return s, "_"
	}
	return s[:1], s[1:]
}

func (z *FSZone) valuePath(ref Ref) string {
	kp, kr := splitTwo(ref.Key)
	vp, vr := splitOne(ref.Version)
	return filepath.Join(z.root, "values", kp, kr, vp, vr+"."+valueExt)
}

func (z *FSZone) valueKeyDir(key string) string {
	kp, kr := splitTwo(key)
	return filepath.Join(z.root, "values", kp, kr)
}

func (z *FSZone) nodePath(prefix string, version VersionID) string {
	vp, vr := splitOne(version)
	name := hex.EncodeToString([]byte(prefix))
	if name == "" {
		name = "root"
	}
	return filepath.Join(z.root, "maps", vp, vr, name+"."+nodeExt)
}

// writeAtomic creates path's parent directories, writes data to a
// temp file alongside the destination, then renames it into place so
// a reader never observes a partial record and a crash between create
// and rename leaves the Zone unchanged.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(err, "zone: mkdir")
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errs.Wrap(err, "zone: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(err, "zone: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.Wrap(err, "zone: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, "zone: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.Wrap(err, "zone: rename into place")
	}
	return nil
}

func readIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(err, "zone: read")
	}
	return data, true, nil
}

// Put implements Zone.
func (z *FSZone) Put(ref Ref, data []byte) error {
	path := z.valuePath(ref)
	existing, ok, err := readIfExists(path)
	if err != nil {
		return err
	}
	if ok {
		if bytes.Equal(existing, data) {
			return nil
		}
		return errs.Wrapf(errs.ErrConflictingWrite, "zone: (%s, %s)", ref.Key, ref.Version)
	}
	log.WithField("key", ref.Key).WithField("version", ref.Version).Debug("zone: put value")
	return writeAtomic(path, data)
}

// Get implements Zone.
func (z *FSZone) Get(ref Ref) ([]byte, bool, error) {
	return readIfExists(z.valuePath(ref))
}

// VersionsFor implements Zone.
func (z *FSZone) VersionsFor(key string) ([]VersionID, error) {
	dir := z.valueKeyDir(key)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "zone: list versions")
	}
	var versions []VersionID
	for _, vp := range entries {
		if !vp.IsDir() {
			continue
		}
		subEntries, err := os.ReadDir(filepath.Join(dir, vp.Name()))
		if err != nil {
			return nil, errs.Wrap(err, "zone: list version remainders")
		}
		for _, vr := range subEntries {
			name := vr.Name()
			ext := "." + valueExt
			if len(name) <= len(ext) || name[len(name)-len(ext):] != ext {
				continue
			}
			rest := name[:len(name)-len(ext)]
			prefix := vp.Name()
			if prefix == "_" {
				prefix = ""
			}
			if rest == "_" {
				rest = ""
			}
			versions = append(versions, prefix+rest)
		}
	}
	return versions, nil
}

// PutNode implements Zone.
func (z *FSZone) PutNode(prefix string, version VersionID, data []byte) error {
	return writeAtomic(z.nodePath(prefix, version), data)
}

// GetNode implements Zone.
func (z *FSZone) GetNode(prefix string, version VersionID) ([]byte, bool, error) {
	return readIfExists(z.nodePath(prefix, version))
}
