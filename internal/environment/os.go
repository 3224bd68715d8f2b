package environment

import (
	"bufio"
	"bytes"
	"context"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/deskctl/internal/observability"
	"github.com/danmuck/deskctl/internal/tools"
	"github.com/rs/zerolog/log"
)

// OSInfo describes the host operating system.
type OSInfo struct {
	OS       string `json:"os" yaml:"os"`
	OSName   string `json:"os_name" yaml:"os_name"`
	Hostname string `json:"hostname" yaml:"hostname"`
	Kernel   string `json:"kernel" yaml:"kernel"`
	Arch     string `json:"arch" yaml:"arch"`
	CPUs     int    `json:"cpus" yaml:"cpus"`
	MemoryKB uint64 `json:"memory_kb" yaml:"memory_kb"`
	User     string `json:"user" yaml:"user"`
}

// Uname is the subset of utsname the probes use.
type Uname struct {
	Sysname string
	Release string
	Machine string
}

var issueEscape = regexp.MustCompile(`\\[A-Za-z]`)

// OSInfo identifies the host. Only context cancellation is an error.
func (p *Probe) OSInfo(ctx context.Context) (OSInfo, error) {
	start := time.Now()
	info := OSInfo{
		OS:   p.GOOS,
		Arch: p.GOARCH,
		CPUs: p.NumCPU(),
	}
	if host, err := p.Hostname(); err == nil {
		info.Hostname = host
	}
	if u, err := p.CurrentUser(); err == nil {
		info.User = u
	}

	uname, unameErr := p.Uname()
	if unameErr == nil {
		info.Kernel = uname.Release
		if uname.Machine != "" {
			info.Arch = uname.Machine
		}
	} else {
		info.Kernel = tools.Output(ctx, p.Runner, "uname", "-r")
	}

	switch p.GOOS {
	case "linux":
		info.OSName = p.linuxName()
		info.MemoryKB = p.linuxMemoryKB()
	case "darwin":
		name := tools.Output(ctx, p.Runner, "sw_vers", "-productName")
		version := tools.Output(ctx, p.Runner, "sw_vers", "-productVersion")
		info.OSName = strings.TrimSpace(name + " " + version)
		if raw := tools.Output(ctx, p.Runner, "sysctl", "-n", "hw.memsize"); raw != "" {
			if memBytes, err := strconv.ParseUint(raw, 10, 64); err == nil {
				info.MemoryKB = memBytes / 1024
			}
		}
	}
	if info.OSName == "" {
		if unameErr == nil && uname.Sysname != "" {
			info.OSName = strings.TrimSpace(uname.Sysname + " " + uname.Release)
		} else {
			info.OSName = tools.Output(ctx, p.Runner, "uname", "-sr")
		}
	}

	if err := ctx.Err(); err != nil {
		observability.RecordProbe("os", time.Since(start), false)
		return OSInfo{}, err
	}
	observability.RecordProbe("os", time.Since(start), true)
	log.Debug().Str("os", info.OS).Str("os_name", info.OSName).Msg("os probe complete")
	return info, nil
}

func (p *Probe) linuxName() string {
	if fields, err := readKeyValues(p.FS, "etc/os-release"); err == nil {
		if name := fields["PRETTY_NAME"]; name != "" {
			return name
		}
		if name := strings.TrimSpace(fields["NAME"] + " " + fields["VERSION"]); name != "" {
			return name
		}
	}

	if releases, err := fs.Glob(p.FS, "etc/*-release"); err == nil {
		sort.Strings(releases)
		for _, file := range releases {
			switch path.Base(file) {
			case "os-release":
				continue
			case "lsb-release":
				if fields, err := readKeyValues(p.FS, file); err == nil && fields["DISTRIB_DESCRIPTION"] != "" {
					return fields["DISTRIB_DESCRIPTION"]
				}
				continue
			}
			if line := firstLine(p.FS, file); line != "" {
				return line
			}
		}
	}

	if line := firstLine(p.FS, "etc/issue"); line != "" {
		return strings.Join(strings.Fields(issueEscape.ReplaceAllString(line, "")), " ")
	}
	return ""
}

func (p *Probe) linuxMemoryKB() uint64 {
	data, err := fs.ReadFile(p.FS, "proc/meminfo")
	if err != nil {
		return 0
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			kb, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return 0
			}
			return kb
		}
	}
	return 0
}

// readKeyValues parses shell-style KEY=value files such as os-release.
func readKeyValues(fsys fs.FS, name string) (map[string]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		} else {
			value = strings.Trim(value, `"'`)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, scanner.Err()
}

func firstLine(fsys fs.FS, name string) string {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
