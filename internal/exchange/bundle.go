package exchange

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileNames lists the bundle files in the order the solver expects them.
var FileNames = []string{StaticFile, DynamicFile, GeometryFile, MaterialsFile, InteractionsFile}

// encodeAll renders every document keyed by file name.
func (b Bundle) encodeAll() (map[string][]byte, error) {
	encoders := map[string]func() ([]byte, error){
		StaticFile:       b.Static.EncodeXML,
		DynamicFile:      b.Dynamic.EncodeXML,
		GeometryFile:     b.Geometry.EncodeXML,
		MaterialsFile:    b.Materials.EncodeXML,
		InteractionsFile: b.Interactions.EncodeXML,
	}
	out := make(map[string][]byte, len(encoders))
	for name, enc := range encoders {
		data, err := enc()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// decodeAll is the inverse of encodeAll. read returns the bytes of a file.
func decodeAll(read func(name string) ([]byte, error)) (Bundle, error) {
	var b Bundle
	decoders := map[string]func([]byte) error{
		StaticFile:       func(d []byte) (err error) { b.Static, err = DecodeStatic(d); return },
		DynamicFile:      func(d []byte) (err error) { b.Dynamic, err = DecodeDynamic(d); return },
		GeometryFile:     func(d []byte) (err error) { b.Geometry, err = DecodeGeometry(d); return },
		MaterialsFile:    func(d []byte) (err error) { b.Materials, err = DecodeMaterials(d); return },
		InteractionsFile: func(d []byte) (err error) { b.Interactions, err = DecodeInteractions(d); return },
	}
	for _, name := range FileNames {
		data, err := read(name)
		if err != nil {
			return Bundle{}, fmt.Errorf("read %s: %w", name, err)
		}
		if err := decoders[name](data); err != nil {
			return Bundle{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return b, nil
}

// WriteDir writes every document into dir, creating it if needed, and
// returns the file paths in FileNames order.
func (b Bundle) WriteDir(dir string) ([]string, error) {
	files, err := b.encodeAll()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bundle dir: %w", err)
	}
	paths := make([]string, 0, len(FileNames))
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, files[name], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ReadDir loads a bundle written by WriteDir.
func ReadDir(dir string) (Bundle, error) {
	return decodeAll(func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, name))
	})
}

// WriteZip writes every document into a single ZIP archive.
func (b Bundle) WriteZip(w io.Writer) error {
	files, err := b.encodeAll()
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	for _, name := range FileNames {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("zip %s: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return fmt.Errorf("zip %s: %w", name, err)
		}
	}
	return zw.Close()
}

// ReadZip loads a bundle written by WriteZip.
func ReadZip(r io.ReaderAt, size int64) (Bundle, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Bundle{}, fmt.Errorf("open zip: %w", err)
	}
	return decodeAll(func(name string) ([]byte, error) {
		f, err := zr.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	})
}

// ZipBytes is a convenience wrapper around WriteZip.
func (b Bundle) ZipBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.WriteZip(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
