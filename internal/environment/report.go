package environment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Report is a full environment snapshot, as attached to support bundles.
type Report struct {
	GeneratedAt   time.Time   `json:"generated_at" yaml:"generated_at"`
	Product       ProductInfo `json:"product" yaml:"product"`
	OS            OSInfo      `json:"os" yaml:"os"`
	Runtime       RuntimeInfo `json:"runtime" yaml:"runtime"`
	Database      *DBInfo     `json:"database,omitempty" yaml:"database,omitempty"`
	DatabaseError string      `json:"database_error,omitempty" yaml:"database_error,omitempty"`
}

type ReportOptions struct {
	BundledModules bool
}

// Report gathers every probe. A database failure is recorded in the report
// and does not fail it; cancellation does.
func (p *Probe) Report(ctx context.Context, opts ReportOptions) (Report, error) {
	r := Report{
		GeneratedAt: time.Now().UTC(),
		Product:     p.ProductInfo(),
		Runtime:     p.RuntimeInfo(opts.BundledModules),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := p.OSInfo(gctx)
		if err != nil {
			return err
		}
		r.OS = info
		return nil
	})
	g.Go(func() error {
		info, err := p.DBInfo(gctx)
		switch {
		case err == nil:
			r.Database = &info
		case errors.Is(err, ErrNoDatabase):
		case gctx.Err() != nil:
			return gctx.Err()
		default:
			r.DatabaseError = err.Error()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return r, nil
}

// Format names a report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Write encodes the report to w.
func (r Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return r.writeText(w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func (r Report) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) {
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", k, v)
	}

	row("Product", strings.TrimSpace(r.Product.Product+" "+r.Product.Version))
	row("System ID", r.Product.SystemID)
	row("Host", r.Product.Host)
	row("Home", r.Product.Home)
	row("OS", r.OS.OSName)
	row("Kernel", r.OS.Kernel)
	row("Arch", r.OS.Arch)
	row("Hostname", r.OS.Hostname)
	row("CPUs", fmt.Sprint(r.OS.CPUs))
	if r.OS.MemoryKB > 0 {
		row("Memory", humanize.IBytes(r.OS.MemoryKB*1024))
	} else {
		row("Memory", "")
	}
	row("Go", r.Runtime.GoVersion)
	row("Build", strings.TrimSpace(r.Runtime.MainModule+" "+r.Runtime.MainVersion))
	switch {
	case r.Database != nil:
		row("Database", fmt.Sprintf("%s %s (%s/%s)", r.Database.Type, r.Database.Version, r.Database.Host, r.Database.Database))
	case r.DatabaseError != "":
		row("Database", "error: "+r.DatabaseError)
	default:
		row("Database", "")
	}
	for _, m := range r.Runtime.Modules {
		v := m.Version
		if m.Replace != "" {
			v += " => " + m.Replace
		}
		row("  "+m.Path, v)
	}
	row("Generated", r.GeneratedAt.Format(time.RFC3339))
	return tw.Flush()
}
