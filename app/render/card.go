package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	cardWidth  = 1200
	cardHeight = 630

	imageBandHeight = 260
	marginX         = 60

	maxTitleLines = 3
	maxDescLines  = 4
)

// Card renders a fixed-size news card: an optional lead image band on top,
// a tag chip, the wrapped title and description, and a brand footer.
type Card struct {
	palette palette
	faces   *fontFaces
}

func (c *Card) Render(title, description, publishedLabel string, imageData []byte) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	fillRect(canvas, canvas.Bounds(), c.palette.background)

	contentTop := 0

	if len(imageData) > 0 {
		if err := c.drawLeadImage(canvas, imageData); err == nil {
			contentTop = imageBandHeight
		}
	}

	y := contentTop + 60

	y = c.drawTag(canvas, "NEWS", marginX, y)
	y += 24

	maxWidth := cardWidth - 2*marginX

	titleLines := wrapText(c.faces.title, title, maxWidth, maxTitleLines)
	y = c.drawLines(canvas, titleLines, c.faces.title, c.palette.titleColor, marginX, y, 58)
	y += 20

	descLines := wrapText(c.faces.body, description, maxWidth, maxDescLines)
	c.drawLines(canvas, descLines, c.faces.body, c.palette.descColor, marginX, y, 40)

	c.drawFooter(canvas, publishedLabel)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode card: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Card) drawLeadImage(canvas *image.RGBA, data []byte) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode lead image: %w", err)
	}

	band := image.Rect(0, 0, cardWidth, imageBandHeight)
	crop := coverCrop(src.Bounds(), cardWidth, imageBandHeight)

	xdraw.CatmullRom.Scale(canvas, band, src, crop, xdraw.Src, nil)

	return nil
}

// coverCrop returns the largest centered sub-rectangle of src matching the
// destination aspect ratio, so scaling fills the band without distortion.
func coverCrop(src image.Rectangle, dstW, dstH int) image.Rectangle {
	srcW, srcH := src.Dx(), src.Dy()
	if srcW == 0 || srcH == 0 {
		return src
	}

	if srcW*dstH > srcH*dstW {
		cropW := srcH * dstW / dstH
		offset := (srcW - cropW) / 2
		return image.Rect(src.Min.X+offset, src.Min.Y, src.Min.X+offset+cropW, src.Max.Y)
	}

	cropH := srcW * dstH / dstW
	offset := (srcH - cropH) / 2
	return image.Rect(src.Min.X, src.Min.Y+offset, src.Max.X, src.Min.Y+offset+cropH)
}

func (c *Card) drawTag(canvas *image.RGBA, label string, x, y int) int {
	width := measure(c.faces.tag, label)
	padX, padY := 18, 10

	chip := image.Rect(x, y, x+width+2*padX, y+26+2*padY)
	fillRect(canvas, chip, c.palette.tagBg)

	drawString(canvas, label, c.faces.tag, c.palette.tagText, x+padX, y+padY+24)

	return chip.Max.Y
}

func (c *Card) drawLines(canvas *image.RGBA, lines []string, face font.Face, col color.RGBA, x, y, lineHeight int) int {
	for _, line := range lines {
		y += lineHeight
		drawString(canvas, line, face, col, x, y)
	}
	return y
}

func (c *Card) drawFooter(canvas *image.RGBA, publishedLabel string) {
	baseline := cardHeight - 36

	fillRect(canvas, image.Rect(marginX, baseline-34, marginX+6, baseline+6), c.palette.accentColor)
	drawString(canvas, "Newsgram", c.faces.brand, c.palette.brandColor, marginX+20, baseline)

	if publishedLabel != "" {
		width := measure(c.faces.brand, publishedLabel)
		drawString(canvas, publishedLabel, c.faces.brand, c.palette.brandColor, cardWidth-marginX-width, baseline)
	}
}

func fillRect(canvas *image.RGBA, rect image.Rectangle, col color.RGBA) {
	draw.Draw(canvas, rect, image.NewUniform(col), image.Point{}, draw.Src)
}

func drawString(canvas *image.RGBA, text string, face font.Face, col color.RGBA, x, y int) {
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func measure(face font.Face, text string) int {
	return font.MeasureString(face, text).Ceil()
}

// wrapText breaks text into at most maxLines lines fitting maxWidth, adding
// an ellipsis when the text is cut.
func wrapText(face font.Face, text string, maxWidth, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		candidate := current + " " + word
		if measure(face, candidate) <= maxWidth {
			current = candidate
			continue
		}

		lines = append(lines, current)
		current = word

		if len(lines) == maxLines {
			break
		}
	}

	if len(lines) < maxLines {
		lines = append(lines, current)
		return lines
	}

	last := []rune(lines[maxLines-1])
	for len(last) > 0 && measure(face, string(last)+"…") > maxWidth {
		last = last[:len(last)-1]
	}
	lines[maxLines-1] = strings.TrimRight(string(last), " ") + "…"

	return lines[:maxLines]
}
