package environment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/db"
	"github.com/danmuck/deskctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeRunner struct {
	out   map[string]string
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)
	if v, ok := f.out[key]; ok {
		return []byte(v + "\n"), nil, 0, nil
	}
	return nil, []byte("not found"), 127, errors.New("exec: not found")
}

type fakeDB struct {
	version string
	err     error
}

func (f fakeDB) Dialect() string { return db.DialectPostgreSQL }
func (f fakeDB) Version(context.Context) (string, error) {
	return f.version, f.err
}
func (f fakeDB) Info() db.DSNInfo {
	return db.DSNInfo{Host: "db.internal", Database: "desk", User: "agent"}
}

func testProbe(goos string, files fstest.MapFS, runner *fakeRunner) *Probe {
	if runner == nil {
		runner = &fakeRunner{}
	}
	return &Probe{
		Config:      config.Default(),
		Runner:      runner,
		FS:          files,
		GOOS:        goos,
		GOARCH:      "amd64",
		NumCPU:      func() int { return 4 },
		Hostname:    func() (string, error) { return "desk01", nil },
		CurrentUser: func() (string, error) { return "desk", nil },
		Uname: func() (Uname, error) {
			return Uname{Sysname: "Linux", Release: "6.1.0-18-amd64", Machine: "x86_64"}, nil
		},
		BuildInfo: func() (*debug.BuildInfo, bool) {
			return &debug.BuildInfo{
				GoVersion: "go1.25.6",
				Main:      debug.Module{Path: "github.com/danmuck/deskctl", Version: "v1.2.3"},
				Deps: []*debug.Module{
					{Path: "github.com/rs/zerolog", Version: "v1.33.0"},
					{Path: "github.com/gin-gonic/gin", Version: "v1.10.0"},
					{Path: "example.com/forked", Version: "v0.1.0", Replace: &debug.Module{Path: "example.com/fork", Version: "v0.1.1"}},
				},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
			}, true
		},
	}
}

func TestOSInfoLinuxOSRelease(t *testing.T) {
	testlog.Start(t)
	files := fstest.MapFS{
		"etc/os-release": {Data: []byte("NAME=\"Debian GNU/Linux\"\nPRETTY_NAME=\"Debian GNU/Linux 12 (bookworm)\"\n")},
		"etc/issue":      {Data: []byte("Debian GNU/Linux 12 \\n \\l\n")},
		"proc/meminfo":   {Data: []byte("MemTotal:       16318412 kB\nMemFree:         1000 kB\n")},
	}
	info, err := testProbe("linux", files, nil).OSInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, OSInfo{
		OS:       "linux",
		OSName:   "Debian GNU/Linux 12 (bookworm)",
		Hostname: "desk01",
		Kernel:   "6.1.0-18-amd64",
		Arch:     "x86_64",
		CPUs:     4,
		MemoryKB: 16318412,
		User:     "desk",
	}, info)
}

func TestOSInfoLinuxFallbackChain(t *testing.T) {
	testlog.Start(t)
	withRelease := fstest.MapFS{
		"etc/lsb-release":    {Data: []byte("DISTRIB_ID=Ubuntu\nDISTRIB_DESCRIPTION=\"Ubuntu 22.04.3 LTS\"\n")},
		"etc/redhat-release": {Data: []byte("\nCentOS Linux release 7.9.2009 (Core)\n")},
	}
	info, err := testProbe("linux", withRelease, nil).OSInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ubuntu 22.04.3 LTS", info.OSName)

	redhat := fstest.MapFS{
		"etc/redhat-release": {Data: []byte("\nCentOS Linux release 7.9.2009 (Core)\n")},
	}
	info, err = testProbe("linux", redhat, nil).OSInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "CentOS Linux release 7.9.2009 (Core)", info.OSName)

	issue := fstest.MapFS{
		"etc/issue": {Data: []byte("Welcome to openSUSE Leap 15.5 - Kernel \\r (\\l).\n")},
	}
	info, err = testProbe("linux", issue, nil).OSInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Welcome to openSUSE Leap 15.5 - Kernel ().", info.OSName)

	info, err = testProbe("linux", fstest.MapFS{}, nil).OSInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Linux 6.1.0-18-amd64", info.OSName)
	require.Zero(t, info.MemoryKB)
}

func TestOSInfoDarwinUsesSwVers(t *testing.T) {
	testlog.Start(t)
	runner := &fakeRunner{out: map[string]string{
		"sw_vers -productName":    "macOS",
		"sw_vers -productVersion": "14.5",
		"sysctl -n hw.memsize":    "17179869184",
	}}
	p := testProbe("darwin", fstest.MapFS{}, runner)
	info, err := p.OSInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "macOS 14.5", info.OSName)
	require.Equal(t, uint64(16777216), info.MemoryKB)
}

func TestOSInfoUnameFallbackToCommand(t *testing.T) {
	testlog.Start(t)
	runner := &fakeRunner{out: map[string]string{
		"uname -r":  "14.0-RELEASE",
		"uname -sr": "FreeBSD 14.0-RELEASE",
	}}
	p := testProbe("freebsd", fstest.MapFS{}, runner)
	p.Uname = func() (Uname, error) { return Uname{}, errors.New("unsupported") }
	p.Hostname = func() (string, error) { return "", errors.New("no hostname") }

	info, err := p.OSInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "FreeBSD 14.0-RELEASE", info.OSName)
	require.Equal(t, "14.0-RELEASE", info.Kernel)
	require.Equal(t, "amd64", info.Arch)
	require.Empty(t, info.Hostname)
}

func TestOSInfoCancelled(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testProbe("linux", fstest.MapFS{}, nil).OSInfo(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRuntimeInfoAndModuleVersion(t *testing.T) {
	testlog.Start(t)
	p := testProbe("linux", fstest.MapFS{}, nil)

	info := p.RuntimeInfo(false)
	require.Equal(t, "go1.25.6", info.GoVersion)
	require.Equal(t, "github.com/danmuck/deskctl", info.MainModule)
	require.Equal(t, "abc123", info.VCSRevision)
	require.Empty(t, info.Modules)

	info = p.RuntimeInfo(true)
	require.Len(t, info.Modules, 3)
	require.Equal(t, "example.com/forked", info.Modules[0].Path)
	require.Equal(t, "example.com/fork@v0.1.1", info.Modules[0].Replace)
	require.Equal(t, "github.com/rs/zerolog", info.Modules[2].Path)

	v, ok := p.ModuleVersion("github.com/gin-gonic/gin")
	require.True(t, ok)
	require.Equal(t, "v1.10.0", v)
	v, ok = p.ModuleVersion("example.com/forked")
	require.True(t, ok)
	require.Equal(t, "v0.1.1", v)
	v, ok = p.ModuleVersion("github.com/danmuck/deskctl")
	require.True(t, ok)
	require.Equal(t, "v1.2.3", v)
	_, ok = p.ModuleVersion("github.com/missing/module")
	require.False(t, ok)

	p.BuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
	_, ok = p.ModuleVersion("github.com/gin-gonic/gin")
	require.False(t, ok)
	require.Empty(t, p.RuntimeInfo(true).MainModule)
}

func TestDBInfo(t *testing.T) {
	testlog.Start(t)
	p := testProbe("linux", fstest.MapFS{}, nil)
	_, err := p.DBInfo(context.Background())
	require.ErrorIs(t, err, ErrNoDatabase)

	p.DB = fakeDB{version: "16.2"}
	info, err := p.DBInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, DBInfo{Type: "postgresql", Version: "16.2", Host: "db.internal", Database: "desk", User: "agent"}, info)

	boom := errors.New("connection refused")
	p.DB = fakeDB{err: boom}
	_, err = p.DBInfo(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestDBInfoAgainstSQLite(t *testing.T) {
	testlog.Start(t)
	handle, err := db.Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer handle.Close()

	p := testProbe("linux", fstest.MapFS{}, nil)
	p.DB = handle
	info, err := p.DBInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sqlite", info.Type)
	require.True(t, strings.HasPrefix(info.Version, "3."), "version %q", info.Version)
	require.Equal(t, ":memory:", info.Database)
}

func TestProductInfo(t *testing.T) {
	testlog.Start(t)
	p := testProbe("linux", fstest.MapFS{}, nil)
	p.Config.FQDN = "desk.example.com"
	require.Equal(t, ProductInfo{
		Product:  "Service Desk",
		Version:  "0.0.1",
		Home:     "/opt/deskctl",
		Host:     "desk.example.com",
		SystemID: "10",
	}, p.ProductInfo())
}

func TestReportRecordsDatabaseErrorAndEncodes(t *testing.T) {
	testlog.Start(t)
	p := testProbe("linux", fstest.MapFS{
		"etc/os-release": {Data: []byte("PRETTY_NAME=\"Alpine Linux v3.19\"\n")},
	}, nil)
	p.DB = fakeDB{err: errors.New("timeout")}

	r, err := p.Report(context.Background(), ReportOptions{BundledModules: true})
	require.NoError(t, err)
	require.Nil(t, r.Database)
	require.Contains(t, r.DatabaseError, "timeout")
	require.Equal(t, "Alpine Linux v3.19", r.OS.OSName)
	require.Len(t, r.Runtime.Modules, 3)

	var js bytes.Buffer
	require.NoError(t, r.Write(&js, FormatJSON))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Contains(t, decoded, "os")
	require.NotContains(t, decoded, "database")

	var ym bytes.Buffer
	require.NoError(t, r.Write(&ym, FormatYAML))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	require.Equal(t, "timeout", strings.TrimPrefix(fromYAML["database_error"].(string), "database version: "))

	var txt bytes.Buffer
	require.NoError(t, r.Write(&txt, FormatText))
	require.Contains(t, txt.String(), "Alpine Linux v3.19")
	require.Contains(t, txt.String(), "error: database version: timeout")
	require.Contains(t, txt.String(), "example.com/forked")
}

func TestReportWithDatabase(t *testing.T) {
	testlog.Start(t)
	p := testProbe("linux", fstest.MapFS{"proc/meminfo": {Data: []byte("MemTotal: 2048 kB\n")}}, nil)
	p.DB = fakeDB{version: "15.4"}
	r, err := p.Report(context.Background(), ReportOptions{})
	require.NoError(t, err)
	require.NotNil(t, r.Database)
	require.Equal(t, "15.4", r.Database.Version)

	var txt bytes.Buffer
	require.NoError(t, r.Write(&txt, FormatText))
	require.Contains(t, txt.String(), "2.0 MiB")
	require.Contains(t, txt.String(), "postgresql 15.4 (db.internal/desk)")
}

func TestParseFormat(t *testing.T) {
	testlog.Start(t)
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
}
