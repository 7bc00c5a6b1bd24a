package vx

import (
	"image"

	sync "github.com/sasha-s/go-deadlock"
)

// Image is a 2-D single-plane pixel buffer.
type Image struct {
	reference

	mu      sync.RWMutex
	width   int
	height  int
	format  DFImage
	virtual bool
	scope   *Graph
	data    []byte
	region  Rectangle
}

func (i *Image) base() *reference {
	if i == nil {
		return nil
	}
	return &i.reference
}

// PatchAddressing describes the memory layout of a host patch.
type PatchAddressing struct {
	DimX, DimY       int
	StrideX, StrideY int
	StepX, StepY     int
}

// Offset is the byte offset of pixel (x, y) relative to the patch origin.
func (a PatchAddressing) Offset(x, y int) int {
	return y*a.StrideY + x*a.StrideX
}

// ImagePatch is a host view of an image region obtained from MapPatch.
// Writes become visible in the image on Unmap.
type ImagePatch struct {
	Addr PatchAddressing
	Data []byte

	image *Image
	rect  Rectangle
	usage Usage
	done  bool
}

// CreateImage allocates a zeroed image.
func (c *Context) CreateImage(width, height int, format DFImage) (*Image, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "create image on released context")
	}
	if width <= 0 || height <= 0 {
		return nil, Errorf(ErrorInvalidDimension, "image %dx%d", width, height)
	}
	if format.PixelSize() == 0 {
		return nil, Errorf(ErrorInvalidFormat, "image format %s", format)
	}
	img := &Image{width: width, height: height, format: format}
	img.allocate()
	c.addReference(&img.reference, TypeImage)
	return img, nil
}

// CreateVirtualImage creates an image private to graph g. Zero dimensions
// and DFImageVirt are resolved from the producing kernel at verification.
// Virtual images cannot be copied by the user.
func (g *Graph) CreateVirtualImage(width, height int, format DFImage) (*Image, error) {
	if !g.base().valid(TypeGraph) {
		return nil, Errorf(ErrorInvalidReference, "create virtual image on invalid graph")
	}
	if width < 0 || height < 0 {
		return nil, Errorf(ErrorInvalidDimension, "virtual image %dx%d", width, height)
	}
	if format != DFImageVirt && format.PixelSize() == 0 {
		return nil, Errorf(ErrorInvalidFormat, "virtual image format %s", format)
	}
	img := &Image{width: width, height: height, format: format, virtual: true, scope: g}
	g.context.addReference(&img.reference, TypeImage)
	g.adoptVirtual(img)
	return img, nil
}

// Width in pixels.
func (i *Image) Width() int { return i.width }

// Height in pixels.
func (i *Image) Height() int { return i.height }

// Format is the pixel format.
func (i *Image) Format() DFImage { return i.format }

// Virtual reports whether the image is graph private.
func (i *Image) Virtual() bool { return i.virtual }

// Size is the memory footprint in bytes.
func (i *Image) Size() int { return i.width * i.height * i.format.PixelSize() }

// ValidRegion is the region holding meaningful pixels, the whole image
// unless narrowed with SetValidRectangle.
func (i *Image) ValidRegion() Rectangle {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.region
}

// SetValidRectangle narrows the valid region.
func (i *Image) SetValidRectangle(r Rectangle) error {
	if err := i.checkRect(r); err != nil {
		return err
	}
	i.mu.Lock()
	i.region = r
	i.mu.Unlock()
	return nil
}

// Release drops the caller's handle.
func (i *Image) Release() error {
	return i.base().releaseExternal(TypeImage)
}

// ComputePatchSize returns the bytes needed to copy rect of plane.
func (i *Image) ComputePatchSize(rect Rectangle, plane int) int {
	if plane != 0 || i.checkRect(rect) != nil {
		return 0
	}
	return rect.Width() * rect.Height() * i.format.PixelSize()
}

// CopyPatch moves a region between the image and buf, which is packed with
// no row padding. ReadOnly copies out of the image, WriteOnly into it.
func (i *Image) CopyPatch(rect Rectangle, plane int, buf []byte, usage Usage) error {
	if !i.base().valid(TypeImage) {
		return Errorf(ErrorInvalidReference, "copy patch")
	}
	if i.virtual {
		return Errorf(ErrorOptimizedAway, "virtual image %q cannot be accessed", i.name)
	}
	if plane != 0 {
		return Errorf(ErrorInvalidParameters, "image has one plane, got %d", plane)
	}
	if err := i.checkRect(rect); err != nil {
		return err
	}
	size := rect.Width() * rect.Height() * i.format.PixelSize()
	if len(buf) < size {
		return Errorf(ErrorInvalidParameters, "buffer holds %d bytes, patch needs %d", len(buf), size)
	}

	switch usage {
	case ReadOnly:
		i.mu.RLock()
		i.copyOut(rect, buf)
		i.mu.RUnlock()
	case WriteOnly:
		i.mu.Lock()
		i.copyIn(rect, buf)
		i.mu.Unlock()
	default:
		return Errorf(ErrorInvalidParameters, "copy usage %s", usage)
	}
	return nil
}

// MapPatch gives host access to rect. Unlike CopyPatch it is allowed on
// virtual images so kernels can reach graph-private data.
func (i *Image) MapPatch(rect Rectangle, plane int, usage Usage) (*ImagePatch, error) {
	if !i.base().valid(TypeImage) {
		return nil, Errorf(ErrorInvalidReference, "map patch")
	}
	if plane != 0 {
		return nil, Errorf(ErrorInvalidParameters, "image has one plane, got %d", plane)
	}
	if err := i.checkRect(rect); err != nil {
		return nil, err
	}
	if i.data == nil {
		return nil, Errorf(ErrorNotAllocated, "image %q has no memory", i.name)
	}
	ps := i.format.PixelSize()
	p := &ImagePatch{
		Addr: PatchAddressing{
			DimX: rect.Width(), DimY: rect.Height(),
			StrideX: ps, StrideY: rect.Width() * ps,
			StepX: 1, StepY: 1,
		},
		Data:  make([]byte, rect.Width()*rect.Height()*ps),
		image: i,
		rect:  rect,
		usage: usage,
	}
	if usage != WriteOnly {
		i.mu.RLock()
		i.copyOut(rect, p.Data)
		i.mu.RUnlock()
	}
	return p, nil
}

// Unmap ends host access and commits writes.
func (i *Image) Unmap(p *ImagePatch) error {
	if p == nil || p.image != i || p.done {
		return Errorf(ErrorInvalidParameters, "patch was not mapped from this image")
	}
	p.done = true
	if p.usage != ReadOnly {
		i.mu.Lock()
		i.copyIn(p.rect, p.Data)
		i.mu.Unlock()
	}
	return nil
}

// Fill sets every pixel to value, truncated to the pixel size.
func (i *Image) Fill(value uint32) error {
	if !i.base().valid(TypeImage) {
		return Errorf(ErrorInvalidReference, "fill image")
	}
	if i.data == nil {
		return Errorf(ErrorNotAllocated, "image %q has no memory", i.name)
	}
	ps := i.format.PixelSize()
	pixel := make([]byte, ps)
	for b := 0; b < ps; b++ {
		pixel[b] = byte(value >> (8 * b))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for off := 0; off < len(i.data); off += ps {
		copy(i.data[off:off+ps], pixel)
	}
	return nil
}

// Gray copies a U8 image into a standard library image.
func (i *Image) Gray() (*image.Gray, error) {
	if i.format != DFImageU8 {
		return nil, Errorf(ErrorNotSupported, "gray view of %s image", i.format)
	}
	if i.data == nil {
		return nil, Errorf(ErrorNotAllocated, "image %q has no memory", i.name)
	}
	g := image.NewGray(image.Rect(0, 0, i.width, i.height))
	i.mu.RLock()
	copy(g.Pix, i.data)
	i.mu.RUnlock()
	return g, nil
}

// SetGray overwrites a U8 image from a standard library image of any color
// model. Sizes must match.
func (i *Image) SetGray(src image.Image) error {
	if i.format != DFImageU8 {
		return Errorf(ErrorNotSupported, "gray write into %s image", i.format)
	}
	b := src.Bounds()
	if b.Dx() != i.width || b.Dy() != i.height {
		return Errorf(ErrorInvalidDimension, "source is %dx%d, image is %dx%d", b.Dx(), b.Dy(), i.width, i.height)
	}
	if i.data == nil {
		return Errorf(ErrorNotAllocated, "image %q has no memory", i.name)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if g, ok := src.(*image.Gray); ok && g.Stride == i.width {
		copy(i.data, g.Pix)
		return nil
	}
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			r, gr, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R 601 luma, as image/color does for Gray
			lum := (19595*r + 38470*gr + 7471*bl + 1<<15) >> 24
			i.data[y*i.width+x] = uint8(lum)
		}
	}
	return nil
}

func (i *Image) allocate() {
	if i.data != nil {
		return
	}
	i.data = make([]byte, i.Size())
	i.region = Rectangle{EndX: i.width, EndY: i.height}
}

func (i *Image) checkRect(r Rectangle) error {
	if r.Empty() || r.StartX < 0 || r.StartY < 0 || r.EndX > i.width || r.EndY > i.height {
		return Errorf(ErrorInvalidParameters, "rectangle %+v outside %dx%d image", r, i.width, i.height)
	}
	return nil
}

func (i *Image) copyOut(r Rectangle, dst []byte) {
	ps := i.format.PixelSize()
	row := r.Width() * ps
	for y := 0; y < r.Height(); y++ {
		src := ((r.StartY+y)*i.width + r.StartX) * ps
		copy(dst[y*row:(y+1)*row], i.data[src:src+row])
	}
}

func (i *Image) copyIn(r Rectangle, src []byte) {
	ps := i.format.PixelSize()
	row := r.Width() * ps
	for y := 0; y < r.Height(); y++ {
		dst := ((r.StartY+y)*i.width + r.StartX) * ps
		copy(i.data[dst:dst+row], src[y*row:(y+1)*row])
	}
}

func (i *Image) applyMeta(m *MetaFormat) error {
	if i.virtual {
		if i.width == 0 {
			i.width = m.ImageWidth
		}
		if i.height == 0 {
			i.height = m.ImageHeight
		}
		if i.format == DFImageVirt {
			i.format = m.ImageFormat
		}
	}
	if i.width != m.ImageWidth || i.height != m.ImageHeight {
		return Errorf(ErrorInvalidDimension, "image is %dx%d, kernel produces %dx%d", i.width, i.height, m.ImageWidth, m.ImageHeight)
	}
	if i.format != m.ImageFormat {
		return Errorf(ErrorInvalidFormat, "image is %s, kernel produces %s", i.format, m.ImageFormat)
	}
	return nil
}
