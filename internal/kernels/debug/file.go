package debug

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/specialistvlad/vxgraph/internal/vx"
)

// File encodings chosen by extension. Anything else is raw pixel data.
const (
	encodingRaw  = "raw"
	encodingPNG  = "png"
	encodingBMP  = "bmp"
	encodingTIFF = "tiff"
)

func encodingOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return encodingPNG
	case ".bmp":
		return encodingBMP
	case ".tif", ".tiff":
		return encodingTIFF
	}
	return encodingRaw
}

// FileName creates the char array debug kernels take as a path.
func FileName(c *vx.Context, path string) (*vx.Array, error) {
	if path == "" {
		return nil, vx.Errorf(vx.ErrorInvalidValue, "empty file name")
	}
	arr, err := c.CreateArray(vx.TypeChar, len(path))
	if err != nil {
		return nil, err
	}
	if err := arr.AddItems([]byte(path)); err != nil {
		_ = arr.Release()
		return nil, err
	}
	arr.SetName(path)
	return arr, nil
}

func fileName(params []vx.Reference, i int) (string, error) {
	arr, err := arrayParam(params, i)
	if err != nil {
		return "", err
	}
	if arr.ItemType() != vx.TypeChar {
		return "", vx.Errorf(vx.ErrorInvalidType, "file name must be a char array, got %s", arr.ItemType())
	}
	count := arr.NumItems()
	if count == 0 {
		return "", vx.Errorf(vx.ErrorInvalidValue, "empty file name")
	}
	r, err := arr.MapRange(0, count, vx.ReadOnly)
	if err != nil {
		return "", err
	}
	defer arr.Unmap(r)
	name := string(r.Data)
	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return name, nil
}

func validateFWriteImage(_ *vx.Node, params []vx.Reference, _ []*vx.MetaFormat) error {
	img, err := imageParam(params, 0)
	if err != nil {
		return err
	}
	name, err := fileName(params, 1)
	if err != nil {
		return err
	}
	if encodingOf(name) != encodingRaw && img.Format() != vx.DFImageU8 {
		return vx.Errorf(vx.ErrorInvalidFormat, "%s can only hold U008 images, got %s", name, img.Format())
	}
	return nil
}

func fwriteImage(n *vx.Node, params []vx.Reference) error {
	img := params[0].(*vx.Image)
	name, err := fileName(params, 1)
	if err != nil {
		return err
	}

	f, err := os.Create(name)
	if err != nil {
		return vx.Errorf(vx.Failure, "create %s: %v", name, err)
	}
	if err := encodeImage(f, img, encodingOf(name)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return vx.Errorf(vx.Failure, "close %s: %v", name, err)
	}
	n.Logger().Debug("Image written.", "file", name, "width", img.Width(), "height", img.Height())
	return nil
}

func encodeImage(w io.Writer, img *vx.Image, encoding string) error {
	if encoding == encodingRaw {
		p, err := img.MapPatch(vx.Rectangle{EndX: img.Width(), EndY: img.Height()}, 0, vx.ReadOnly)
		if err != nil {
			return err
		}
		defer img.Unmap(p)
		if _, err := w.Write(p.Data); err != nil {
			return vx.Errorf(vx.Failure, "write pixels: %v", err)
		}
		return nil
	}

	gray, err := img.Gray()
	if err != nil {
		return err
	}
	switch encoding {
	case encodingPNG:
		err = png.Encode(w, gray)
	case encodingBMP:
		err = bmp.Encode(w, gray)
	case encodingTIFF:
		err = tiff.Encode(w, gray, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return vx.Errorf(vx.Failure, "encode %s: %v", encoding, err)
	}
	return nil
}

// validateFReadImage sizes the output from the file header. Raw files carry
// no header, so the output must already have its geometry.
func validateFReadImage(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	name, err := fileName(params, 0)
	if err != nil {
		return err
	}
	out, err := imageParam(params, 1)
	if err != nil {
		return err
	}

	if encodingOf(name) == encodingRaw {
		if out.Width() == 0 || out.Height() == 0 || out.Format().PixelSize() == 0 {
			return vx.Errorf(vx.ErrorInvalidParameters, "raw file %s needs an output with known geometry", name)
		}
		metas[1].SetImage(out.Width(), out.Height(), out.Format())
		return nil
	}

	f, err := os.Open(name)
	if err != nil {
		return vx.Errorf(vx.ErrorInvalidValue, "open %s: %v", name, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return vx.Errorf(vx.ErrorInvalidFormat, "decode %s: %v", name, err)
	}
	metas[1].SetImage(cfg.Width, cfg.Height, vx.DFImageU8)
	return nil
}

func freadImage(n *vx.Node, params []vx.Reference) error {
	name, err := fileName(params, 0)
	if err != nil {
		return err
	}
	out := params[1].(*vx.Image)

	data, err := os.ReadFile(name)
	if err != nil {
		return vx.Errorf(vx.Failure, "read %s: %v", name, err)
	}
	if encodingOf(name) == encodingRaw {
		rect := vx.Rectangle{EndX: out.Width(), EndY: out.Height()}
		p, err := out.MapPatch(rect, 0, vx.WriteOnly)
		if err != nil {
			return err
		}
		if len(data) < len(p.Data) {
			out.Unmap(p)
			return vx.Errorf(vx.ErrorInvalidDimension, "%s holds %d bytes, image needs %d", name, len(data), len(p.Data))
		}
		copy(p.Data, data)
		return out.Unmap(p)
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return vx.Errorf(vx.ErrorInvalidFormat, "decode %s: %v", name, err)
	}
	if err := out.SetGray(decoded); err != nil {
		return err
	}
	n.Logger().Debug("Image read.", "file", name)
	return nil
}

func validateFWriteArray(_ *vx.Node, params []vx.Reference, _ []*vx.MetaFormat) error {
	if _, err := arrayParam(params, 0); err != nil {
		return err
	}
	_, err := fileName(params, 1)
	return err
}

func fwriteArray(n *vx.Node, params []vx.Reference) error {
	arr := params[0].(*vx.Array)
	name, err := fileName(params, 1)
	if err != nil {
		return err
	}

	var data []byte
	if count := arr.NumItems(); count > 0 {
		r, err := arr.MapRange(0, count, vx.ReadOnly)
		if err != nil {
			return err
		}
		data = r.Data
		if err := arr.Unmap(r); err != nil {
			return err
		}
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return vx.Errorf(vx.Failure, "write %s: %v", name, err)
	}
	n.Logger().Debug("Array written.", "file", name, "items", arr.NumItems())
	return nil
}

func validateFReadArray(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	if _, err := fileName(params, 0); err != nil {
		return err
	}
	out, err := arrayParam(params, 1)
	if err != nil {
		return err
	}
	if out.ItemType() == vx.TypeInvalid || out.Capacity() == 0 {
		return vx.Errorf(vx.ErrorInvalidParameters, "fread_array needs an output with item type and capacity")
	}
	metas[1].SetArray(out.ItemType(), out.Capacity())
	return nil
}

// freadArray replaces the items of the output with the file contents. A
// trailing partial item is an error; items beyond capacity are dropped.
func freadArray(n *vx.Node, params []vx.Reference) error {
	name, err := fileName(params, 0)
	if err != nil {
		return err
	}
	out := params[1].(*vx.Array)

	data, err := os.ReadFile(name)
	if err != nil {
		return vx.Errorf(vx.Failure, "read %s: %v", name, err)
	}
	size := out.ItemSize()
	if len(data)%size != 0 {
		return vx.Errorf(vx.ErrorInvalidFormat, "%s holds %d bytes, not a whole number of %d byte items", name, len(data), size)
	}
	if limit := out.Capacity() * size; len(data) > limit {
		n.Logger().Warn("File holds more items than the array can take.", "file", name, "dropped", (len(data)-limit)/size)
		data = data[:limit]
	}
	if err := out.Truncate(0); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := out.AddItems(data); err != nil {
		return fmt.Errorf("fill array from %s: %w", name, err)
	}
	return nil
}
