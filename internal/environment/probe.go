package environment

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/user"
	"runtime"
	"runtime/debug"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/db"
	"github.com/danmuck/deskctl/internal/tools"
)

var ErrNoDatabase = errors.New("no database configured")

// Database is the part of *db.DB the probes need.
type Database interface {
	Dialect() string
	Version(ctx context.Context) (string, error)
	Info() db.DSNInfo
}

// Probe gathers environment facts. Every host dependency is a field so tests
// can substitute them; New fills in the real host.
type Probe struct {
	Config config.Config
	DB     Database
	Runner tools.CommandRunner

	// FS is rooted at "/", so files are read as "etc/os-release".
	FS          fs.FS
	GOOS        string
	GOARCH      string
	NumCPU      func() int
	Hostname    func() (string, error)
	CurrentUser func() (string, error)
	Uname       func() (Uname, error)
	BuildInfo   func() (*debug.BuildInfo, bool)
}

// New returns a probe for the running host. database may be nil.
func New(cfg config.Config, database Database) *Probe {
	return &Probe{
		Config:      cfg,
		DB:          database,
		Runner:      tools.ExecRunner{},
		FS:          os.DirFS("/"),
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		NumCPU:      runtime.NumCPU,
		Hostname:    os.Hostname,
		CurrentUser: currentUser,
		Uname:       hostUname,
		BuildInfo:   debug.ReadBuildInfo,
	}
}

func currentUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}
