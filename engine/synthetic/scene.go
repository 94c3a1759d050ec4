// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package synthetic

import (
	"image"
	"image/color"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/oriel-project/oriel/display"
)

const blockSize = 64

// Scene colors in framebuffer byte order (blue, green, red, pad).
var (
	colorBackground = [display.BytesPerPixel]byte{0x2c, 0x24, 0x1f, 0x00}
	colorBlock      = [display.BytesPerPixel]byte{0x20, 0x80, 0xe0, 0x00}
	colorAccent     = [display.BytesPerPixel]byte{0x6a, 0xa0, 0x38, 0x00}
	colorText       = color.RGBA{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff}
)

// paint renders one frame's worth of changes and records their damage.
// The first frame after construction or a resize covers the whole
// desktop; later frames only touch the block's path and the counter.
func (e *Engine) paint(frameID uint32) {
	if e.fullPaint {
		e.fullPaint = false
		e.advanceBlock()
		e.drawScene(frameID)
		e.paintExtras()
		e.damage(e.bounds())
		return
	}

	before := e.blockRect()
	e.advanceBlock()
	after := e.blockRect()

	e.fill(before, colorBackground)
	e.fill(after, colorBlock)
	e.damage(before)
	e.damage(after)
	e.drawCounter(frameID)
	e.paintExtras()
}

// paintExtras draws and damages scenario paint rectangles queued for
// this frame.
func (e *Engine) paintExtras() {
	for _, r := range e.extraPaints {
		e.fill(r, colorAccent)
		e.damage(r)
	}
	e.extraPaints = nil
}

// drawScene redraws the whole framebuffer. Damage is the caller's
// concern.
func (e *Engine) drawScene(frameID uint32) {
	e.fill(e.bounds(), colorBackground)
	e.fill(e.blockRect(), colorBlock)
	e.drawLabel(frameID)
}

// drawCounter erases the counter strip and redraws the label, recording
// the strip as damaged.
func (e *Engine) drawCounter(frameID uint32) {
	strip := e.counterStrip()
	e.fill(strip, colorBackground)
	e.drawLabel(frameID)
	e.damage(strip)
}

func (e *Engine) drawLabel(frameID uint32) {
	strip := e.counterStrip()
	face := basicfont.Face7x13
	drawer := font.Drawer{
		Dst:  &bgrxImage{pixels: e.buffer, width: e.width, height: e.height, stride: e.stride},
		Src:  image.NewUniform(colorText),
		Face: face,
		Dot:  fixed.P(strip.Left+counterPad, strip.Top+counterPad+face.Ascent),
	}
	drawer.DrawString("frame " + strconv.FormatUint(uint64(frameID), 10))
}

const (
	counterLeft = 8
	counterTop  = 8
	counterPad  = 4
)

// counterStrip is the area the frame counter is drawn into, sized for
// the widest possible label so stale digits are always erased.
func (e *Engine) counterStrip() display.Rect {
	face := basicfont.Face7x13
	width := len("frame 4294967295")*face.Advance + 2*counterPad
	height := face.Ascent + face.Descent + 2*counterPad
	return display.FromSize(counterLeft, counterTop, width, height)
}

func (e *Engine) bounds() display.Rect {
	return display.FromSize(0, 0, e.width, e.height)
}

func (e *Engine) blockRect() display.Rect {
	return display.FromSize(e.blockX, e.blockY, blockSize, blockSize)
}

// advanceBlock moves the block one step, reflecting off desktop edges.
func (e *Engine) advanceBlock() {
	e.blockX += e.blockDX
	e.blockY += e.blockDY

	maxX := max(e.width-blockSize, 0)
	maxY := max(e.height-blockSize, 0)
	if e.blockX <= 0 || e.blockX >= maxX {
		e.blockX = min(max(e.blockX, 0), maxX)
		e.blockDX = -e.blockDX
	}
	if e.blockY <= 0 || e.blockY >= maxY {
		e.blockY = min(max(e.blockY, 0), maxY)
		e.blockDY = -e.blockDY
	}
}

// clampBlock pulls the block back inside the desktop after a resize.
func (e *Engine) clampBlock() {
	e.blockX = min(max(e.blockX, 0), max(e.width-blockSize, 0))
	e.blockY = min(max(e.blockY, 0), max(e.height-blockSize, 0))
}

// fill paints r, clipped to the desktop, with a solid color.
func (e *Engine) fill(r display.Rect, c [display.BytesPerPixel]byte) {
	r = r.Constrain(e.bounds())
	if r.IsEmpty() {
		return
	}

	first := r.Top*e.stride + r.Left*display.BytesPerPixel
	row := e.buffer[first : first+r.Width()*display.BytesPerPixel]
	for x := 0; x < len(row); x += display.BytesPerPixel {
		copy(row[x:], c[:])
	}
	for y := r.Top + 1; y < r.Bottom; y++ {
		start := y*e.stride + r.Left*display.BytesPerPixel
		copy(e.buffer[start:start+len(row)], row)
	}
}

// damage folds r, clipped to the desktop, into the invalid region.
func (e *Engine) damage(r display.Rect) {
	r = r.Constrain(e.bounds())
	if r.IsEmpty() {
		return
	}
	if !e.hasInvalid {
		e.invalid, e.hasInvalid = r, true
		return
	}
	e.invalid = e.invalid.Extend(r)
}

// bgrxImage exposes a BGRX framebuffer as a draw.Image so text can be
// rendered with the font machinery.
type bgrxImage struct {
	pixels []byte
	width  int
	height int
	stride int
}

func (m *bgrxImage) ColorModel() color.Model { return color.RGBAModel }

func (m *bgrxImage) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

func (m *bgrxImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(m.Bounds()) {
		return color.RGBA{}
	}
	offset := y*m.stride + x*display.BytesPerPixel
	return color.RGBA{
		R: m.pixels[offset+2],
		G: m.pixels[offset+1],
		B: m.pixels[offset],
		A: 0xff,
	}
}

func (m *bgrxImage) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(m.Bounds()) {
		return
	}
	r, g, b, _ := c.RGBA()
	offset := y*m.stride + x*display.BytesPerPixel
	m.pixels[offset] = byte(b >> 8)
	m.pixels[offset+1] = byte(g >> 8)
	m.pixels[offset+2] = byte(r >> 8)
	m.pixels[offset+3] = 0
}
