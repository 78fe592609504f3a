// Package export writes an assembled document and its binary payloads to disk.
//
// Every file is first written in full to a temporary file. The temporaries are
// then renamed into place, binaries before the JSON document. If a rename
// fails, files already renamed are removed and any previous output they
// replaced is put back, so a failed export leaves the directory as it was.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookgo/atomicfile"
	"go.uber.org/zap"

	"github.com/scottpetrovic/mocap2gltf/internal/errs"
	"github.com/scottpetrovic/mocap2gltf/internal/logger"
	"github.com/scottpetrovic/mocap2gltf/internal/scene"
)

// Indent is the JSON indentation unit.
const Indent = "    "

// FileMode is the permission of every written file.
const FileMode os.FileMode = 0644

// File is one written output file.
type File struct {
	Path  string
	Bytes int
}

// Result lists the files written, binaries first and the document last.
type Result struct {
	Files []File
}

// Document returns the written JSON document.
func (r *Result) Document() File {
	return r.Files[len(r.Files)-1]
}

// TotalBytes returns the combined size of every written file.
func (r *Result) TotalBytes() int {
	total := 0
	for _, f := range r.Files {
		total += f.Bytes
	}
	return total
}

// Write writes buffers next to path, at the uris doc declares, then writes
// doc itself to path. buffers must be parallel to doc.Buffers.
func Write(path string, doc *scene.Document, buffers [][]byte) (*Result, error) {
	if len(buffers) != len(doc.Buffers) {
		return nil, &errs.IOError{Op: "write", Path: path,
			Err: fmt.Errorf("document declares %d buffers, got %d", len(doc.Buffers), len(buffers))}
	}

	dir := filepath.Dir(path)
	outputs := make([]output, 0, len(buffers)+1)
	for i, b := range buffers {
		binPath := filepath.Join(dir, filepath.FromSlash(doc.Buffers[i].URI))
		if len(b) != doc.Buffers[i].ByteLength {
			return nil, &errs.IOError{Op: "write", Path: binPath,
				Err: fmt.Errorf("buffer holds %d bytes, document declares %d", len(b), doc.Buffers[i].ByteLength)}
		}
		outputs = append(outputs, output{path: binPath, data: b})
	}

	data, err := json.MarshalIndent(doc, "", Indent)
	if err != nil {
		return nil, &errs.IOError{Op: "encode", Path: path, Err: err}
	}
	outputs = append(outputs, output{path: path, data: append(data, '\n')})

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &errs.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	// Every temporary file is complete before the first rename
	for i := range outputs {
		if err := outputs[i].stage(); err != nil {
			abort(outputs[:i])
			return nil, err
		}
	}

	for i := range outputs {
		if err := outputs[i].commit(); err != nil {
			abort(outputs[i+1:])
			rollback(outputs[:i+1])
			return nil, err
		}
	}

	res := &Result{Files: make([]File, len(outputs))}
	for i := range outputs {
		outputs[i].dropBackup()
		res.Files[i] = File{Path: outputs[i].path, Bytes: len(outputs[i].data)}
	}

	logger.Stage("write").Debug("document written",
		zap.String("output", path),
		zap.Int("files", len(res.Files)),
		zap.Int("bytes", res.TotalBytes()),
	)

	return res, nil
}

// output is one file moving through stage, commit and possibly rollback.
type output struct {
	path      string
	data      []byte
	tmp       *atomicfile.File
	backup    string // Previous file moved aside during commit
	committed bool
}

// stage writes data to a temporary file next to path.
func (o *output) stage() error {
	f, err := atomicfile.New(o.path, FileMode)
	if err != nil {
		return &errs.IOError{Op: "create", Path: o.path, Err: err}
	}
	if _, err := f.Write(o.data); err != nil {
		f.Abort()
		return &errs.IOError{Op: "write", Path: o.path, Err: err}
	}
	o.tmp = f
	return nil
}

// commit renames the temporary file into place, keeping a regular file it
// replaces until the whole write succeeds.
func (o *output) commit() error {
	if st, err := os.Lstat(o.path); err == nil && st.Mode().IsRegular() {
		backup := filepath.Join(filepath.Dir(o.path), "."+filepath.Base(o.path)+".prev")
		if err := os.Rename(o.path, backup); err != nil {
			o.tmp.Abort()
			return &errs.IOError{Op: "rename", Path: o.path, Err: err}
		}
		o.backup = backup
	}
	if err := o.tmp.Close(); err != nil {
		o.tmp.Abort()
		return &errs.IOError{Op: "rename", Path: o.path, Err: err}
	}
	o.committed = true
	return nil
}

func (o *output) dropBackup() {
	if o.backup == "" {
		return
	}
	if err := os.Remove(o.backup); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove previous output", zap.String("path", o.backup), zap.Error(err))
	}
}

// abort discards staged temporary files.
func abort(outputs []output) {
	for _, o := range outputs {
		if o.tmp != nil {
			o.tmp.Abort()
		}
	}
}

// rollback removes committed files and puts back what they replaced.
func rollback(outputs []output) {
	for i := len(outputs) - 1; i >= 0; i-- {
		o := outputs[i]
		if o.committed {
			if err := os.Remove(o.path); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove partial output", zap.String("path", o.path), zap.Error(err))
			}
		}
		if o.backup != "" {
			if err := os.Rename(o.backup, o.path); err != nil {
				logger.Warn("failed to restore previous output", zap.String("path", o.path), zap.Error(err))
			}
		}
	}
}
