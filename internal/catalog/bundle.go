package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// BundleFilename is the catalog file inside a bundle directory.
const BundleFilename = "catalog.yaml"

// ErrBundleNotFound is returned by a BundleSource for an unknown bundle.
var ErrBundleNotFound = errors.New("bundle not found")

// Bundle is an extension catalog contributing additional services.
type Bundle struct {
	Name     string
	Document *Document
}

// BundleSource gives access to the bundles available on this machine.
// Retrieving bundles from remote repositories is not its concern.
type BundleSource interface {
	Available() ([]string, error)
	Load(name string) (*Document, error)
}

// Compose returns a new catalog made of c followed by the services of each
// bundle, in order. c itself is left untouched.
func (c *Catalog) Compose(bundles ...Bundle) (*Catalog, error) {
	if len(bundles) == 0 {
		return c, nil
	}

	doc := cloneDocument(&c.doc)
	names := []string{}
	for _, b := range bundles {
		if b.Document == nil {
			return nil, fmt.Errorf("bundle %s: empty document", b.Name)
		}
		bd := cloneDocument(b.Document)
		for _, t := range bd.HostTypes {
			if !slices.Contains(doc.HostTypes, t) {
				doc.HostTypes = append(doc.HostTypes, t)
			}
		}
		for _, t := range bd.DedicatedHostTypes {
			if !slices.Contains(doc.DedicatedHostTypes, t) {
				doc.DedicatedHostTypes = append(doc.DedicatedHostTypes, t)
			}
		}
		for _, s := range bd.Services {
			s.Bundle = b.Name
			doc.Services = append(doc.Services, s)
		}
		names = append(names, b.Name)
	}

	return New(&doc, c.source+"+"+strings.Join(names, "+"))
}

// DirBundleSource reads bundles from <Dir>/<name>/catalog.yaml.
type DirBundleSource struct {
	Dir string
}

func (d DirBundleSource) Available() ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list bundles: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(d.Dir, e.Name(), BundleFilename)); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d DirBundleSource) Load(name string) (*Document, error) {
	f, err := os.Open(filepath.Join(d.Dir, name, BundleFilename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrBundleNotFound)
		}
		return nil, fmt.Errorf("open bundle %s: %w", name, err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", name, err)
	}
	return doc, nil
}

// MapBundleSource serves bundles from memory.
type MapBundleSource map[string]*Document

func (m MapBundleSource) Available() ([]string, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (m MapBundleSource) Load(name string) (*Document, error) {
	doc, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrBundleNotFound)
	}
	return doc, nil
}
