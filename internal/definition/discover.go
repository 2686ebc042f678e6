package definition

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// FsFactory returns the filesystem definitions are read from.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// SourceFile is a discovered definition file.
type SourceFile struct {
	Path     string
	BaseName string
}

// Discover walks root recursively and returns every file whose extension is one
// of exts, sorted by path. Paths are absolute when root is.
func Discover(fs afero.Fs, root string, exts ...string) ([]SourceFile, error) {
	info, err := fs.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &cmd.ConfigurationError{Source: root, Err: cmd.ErrDirectoryNotFound}
	}

	var files []SourceFile
	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() || !matchExt(path, exts) {
			return nil
		}
		base := filepath.Base(path)
		files = append(files, SourceFile{
			Path:     path,
			BaseName: strings.TrimSuffix(base, filepath.Ext(base)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func matchExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
