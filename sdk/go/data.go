package swiftsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// Data finds the archive files of one observation.
type Data struct {
	engine.Request

	ObsID     *domain.ObsID
	XRT       *bool
	UVOT      *bool
	BAT       *bool
	Log       *bool
	Auxil     *bool
	TDRSS     *bool
	Subthresh *bool
	UKSDC     *bool
	ITSDC     *bool
	Quicklook *bool

	Entries []*DataFile
}

// DataFile is one file in the archive.
type DataFile struct {
	Filename  string
	Path      string
	URL       string
	Type      string
	Size      *int
	Quicklook *bool
}

var dataFileSchema = schema.Define("Swift_Data_File", func() schema.Object { return &DataFile{} }).
	Returned(
		schema.String("filename", func(f *DataFile) *string { return &f.Filename }),
		schema.String("path", func(f *DataFile) *string { return &f.Path }),
		schema.String("url", func(f *DataFile) *string { return &f.URL }),
		schema.String("type", func(f *DataFile) *string { return &f.Type }),
		schema.Int("size", func(f *DataFile) **int { return &f.Size }),
		schema.Bool("quicklook", func(f *DataFile) **bool { return &f.Quicklook }),
	)

func (f *DataFile) Schema() *schema.Schema { return dataFileSchema }

var dataSchema = schema.Define("Swift_Data", func() schema.Object { return &Data{} }).
	Submitted(
		engine.UsernameField[*Data](),
		obsIDField("obsid", func(d *Data) **domain.ObsID { return &d.ObsID }),
		schema.Bool("xrt", func(d *Data) **bool { return &d.XRT }),
		schema.Bool("uvot", func(d *Data) **bool { return &d.UVOT }),
		schema.Bool("bat", func(d *Data) **bool { return &d.BAT }),
		schema.Bool("log", func(d *Data) **bool { return &d.Log }),
		schema.Bool("auxil", func(d *Data) **bool { return &d.Auxil }),
		schema.Bool("tdrss", func(d *Data) **bool { return &d.TDRSS }),
		schema.Bool("subthresh", func(d *Data) **bool { return &d.Subthresh }),
		schema.Bool("uksdc", func(d *Data) **bool { return &d.UKSDC }),
		schema.Bool("itsdc", func(d *Data) **bool { return &d.ITSDC }),
		schema.Bool("quicklook", func(d *Data) **bool { return &d.Quicklook }),
		engine.StatusField[*Data](),
	).
	Returned(
		schema.List("entries", func(d *Data) *[]*DataFile { return &d.Entries }, schema.As[*DataFile]),
	).
	Local(
		engine.SecretField[*Data](),
		obsIDField("obsnum", func(d *Data) **domain.ObsID { return &d.ObsID }),
	).
	Nested(envelope.StatusType, "Swift_Data_File")

func (d *Data) Schema() *schema.Schema { return dataSchema }

func (d *Data) Validate() error {
	if d.ObsID == nil {
		return errors.New("obsid is required")
	}
	if err := d.ObsID.Validate(); err != nil {
		return err
	}
	set := func(b *bool) bool { return b != nil && *b }
	if !set(d.XRT) && !set(d.UVOT) && !set(d.BAT) && !set(d.Log) && !set(d.Auxil) && !set(d.TDRSS) && !set(d.Subthresh) {
		return errors.New("at least one of xrt, uvot, bat, log, auxil, tdrss or subthresh must be requested")
	}
	if set(d.UKSDC) && set(d.ITSDC) {
		return errors.New("uksdc and itsdc are mutually exclusive")
	}
	return nil
}

// Downloader fetches one remote file to a local path.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Download fetches every returned file into outdir, keeping the archive's
// directory layout. Files already present are skipped unless overwrite is set.
func (d *Data) Download(ctx context.Context, dl Downloader, outdir string, overwrite bool) error {
	if d.Status.State != engine.Accepted {
		return fmt.Errorf("data request is %s, not Accepted", d.Status.State)
	}
	for _, f := range d.Entries {
		if f.URL == "" {
			continue
		}
		rel := filepath.Join(filepath.FromSlash(strings.TrimPrefix(f.Path, "/")), f.Filename)
		dest := filepath.Join(outdir, rel)
		if !strings.HasPrefix(dest, filepath.Clean(outdir)+string(os.PathSeparator)) {
			return fmt.Errorf("refusing to write %s outside %s", rel, outdir)
		}
		if !overwrite {
			if _, err := os.Stat(dest); err == nil {
				continue
			}
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := dl.Download(ctx, f.URL, dest); err != nil {
			return fmt.Errorf("download %s: %w", f.Filename, err)
		}
	}
	return nil
}

// HTTPDownloader streams files over plain GET.
type HTTPDownloader struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *logrus.Entry
}

func (h *HTTPDownloader) Download(ctx context.Context, url, dest string) error {
	client := h.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: h.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &engine.TransportError{StatusCode: resp.StatusCode, Body: resp.Status}
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{"url": url, "bytes": n}).Debug("downloaded file")
	}
	return os.Rename(tmp, dest)
}
