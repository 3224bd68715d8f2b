package environment

import (
	"runtime"
	"sort"
)

// Module is one module compiled into the binary.
type Module struct {
	Path    string `json:"path" yaml:"path"`
	Version string `json:"version" yaml:"version"`
	Replace string `json:"replace,omitempty" yaml:"replace,omitempty"`
}

// RuntimeInfo describes the Go runtime and the build.
type RuntimeInfo struct {
	GoVersion   string   `json:"go_version" yaml:"go_version"`
	Compiler    string   `json:"compiler" yaml:"compiler"`
	GOOS        string   `json:"goos" yaml:"goos"`
	GOARCH      string   `json:"goarch" yaml:"goarch"`
	MainModule  string   `json:"main_module,omitempty" yaml:"main_module,omitempty"`
	MainVersion string   `json:"main_version,omitempty" yaml:"main_version,omitempty"`
	VCSRevision string   `json:"vcs_revision,omitempty" yaml:"vcs_revision,omitempty"`
	Modules     []Module `json:"modules,omitempty" yaml:"modules,omitempty"`
}

// RuntimeInfo reports the runtime. With bundled set, every dependency module
// is listed, sorted by path.
func (p *Probe) RuntimeInfo(bundled bool) RuntimeInfo {
	info := RuntimeInfo{
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		GOOS:      p.GOOS,
		GOARCH:    p.GOARCH,
	}
	bi, ok := p.BuildInfo()
	if !ok || bi == nil {
		return info
	}
	if bi.GoVersion != "" {
		info.GoVersion = bi.GoVersion
	}
	info.MainModule = bi.Main.Path
	info.MainVersion = bi.Main.Version
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			info.VCSRevision = s.Value
		}
	}
	if bundled {
		for _, dep := range bi.Deps {
			m := Module{Path: dep.Path, Version: dep.Version}
			if dep.Replace != nil {
				m.Replace = dep.Replace.Path
				if dep.Replace.Version != "" {
					m.Replace += "@" + dep.Replace.Version
				}
			}
			info.Modules = append(info.Modules, m)
		}
		sort.Slice(info.Modules, func(i, j int) bool { return info.Modules[i].Path < info.Modules[j].Path })
	}
	return info
}

// ModuleVersion looks a module up by path in the build's module list. The
// main module is found as well. A replaced module reports its replacement's
// version when it has one.
func (p *Probe) ModuleVersion(path string) (string, bool) {
	bi, ok := p.BuildInfo()
	if !ok || bi == nil || path == "" {
		return "", false
	}
	if bi.Main.Path == path {
		return bi.Main.Version, true
	}
	for _, dep := range bi.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version, true
		}
		return dep.Version, true
	}
	return "", false
}
