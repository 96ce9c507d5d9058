// Package config decodes an optional HCL mount profile, the declarative
// counterpart to the CLI's mount flags. CLI flags always win over a
// profile's values — see the mount command in package cmd.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/danieleds/GFS/internal/pathinfo"
)

// Profile is one named mount profile, e.g.:
//
//	datastore  = "/data/music"
//	mountpoint = "/mnt/music"
//	backend    = "fuse"
//	read_only  = false
type Profile struct {
	Datastore  string `hcl:"datastore"`
	Mountpoint string `hcl:"mountpoint"`
	Prefix     string `hcl:"prefix,optional"`
	Backend    string `hcl:"backend,optional"`
	ReadOnly   bool   `hcl:"read_only,optional"`
}

// Load parses and decodes the profile at path.
func Load(path string) (*Profile, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}

	var p Profile
	if diags := gohcl.DecodeBody(f.Body, nil, &p); diags.HasErrors() {
		return nil, diags
	}

	if p.Backend == "" {
		p.Backend = "fuse"
	}
	if p.Prefix == "" {
		p.Prefix = pathinfo.SemanticPrefix
	} else if p.Prefix != pathinfo.SemanticPrefix {
		// The semantic marker prefix is compiled into internal/pathinfo, not
		// runtime-configurable yet; a profile naming a different one is a
		// mistake worth catching at load time rather than mounting silently
		// wrong.
		return nil, fmt.Errorf("config: profile %s requests prefix %q, only %q is supported", path, p.Prefix, pathinfo.SemanticPrefix)
	}

	if p.Datastore == "" {
		return nil, fmt.Errorf("config: profile %s: datastore is required", path)
	}
	if p.Mountpoint == "" {
		return nil, fmt.Errorf("config: profile %s: mountpoint is required", path)
	}

	return &p, nil
}
