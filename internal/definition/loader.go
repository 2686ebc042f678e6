package definition

import (
	"github.com/spf13/afero"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// Loader reads definition files from a filesystem.
type Loader struct {
	fs   afero.Fs
	exts []string
}

// NewLoader returns a loader for YAML definitions, or HCL ones when useHCL is set.
// A nil fs uses FsFactory.
func NewLoader(fs afero.Fs, useHCL bool) *Loader {
	if fs == nil {
		fs = FsFactory()
	}
	exts := YAMLExtensions
	if useHCL {
		exts = HCLExtensions
	}
	return &Loader{fs: fs, exts: exts}
}

// Discover lists the definition files under dir.
func (l *Loader) Discover(dir string) ([]SourceFile, error) {
	return Discover(l.fs, dir, l.exts...)
}

// Read decodes the given files. A file that cannot be read or decoded yields a
// ConfigurationError in errs and is skipped; the others are still returned.
func (l *Loader) Read(files []SourceFile) (raws []Raw, errs []error) {
	for _, f := range files {
		data, err := afero.ReadFile(l.fs, f.Path)
		if err != nil {
			errs = append(errs, &cmd.ConfigurationError{Source: f.Path, Err: err})
			continue
		}
		rec, err := Decode(f.Path, data)
		if err != nil {
			errs = append(errs, &cmd.ConfigurationError{Source: f.Path, Err: err})
			continue
		}
		raws = append(raws, Raw{Path: f.Path, FileName: f.BaseName, Record: rec})
	}
	return raws, errs
}

// Load discovers and reads every definition under dir.
func (l *Loader) Load(dir string) ([]Raw, []error, error) {
	files, err := l.Discover(dir)
	if err != nil {
		return nil, nil, err
	}
	raws, errs := l.Read(files)
	return raws, errs, nil
}
