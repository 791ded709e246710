package render

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Renderer turns an article into an encoded notification image. It must not
// perform network calls: the lead image arrives as bytes, fonts are embedded.
type Renderer interface {
	Render(title, description, publishedLabel string, imageData []byte) ([]byte, error)
}

// For returns the card template registered under name.
func For(name string) (Renderer, error) {
	palette, ok := palettes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown render template: %q (available: %s)", name, strings.Join(Templates(), ", "))
	}

	faces, err := loadFaces()
	if err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}

	return &Card{palette: palette, faces: faces}, nil
}

// Templates returns the registered template names.
func Templates() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type palette struct {
	background  color.RGBA
	cardBg      color.RGBA
	tagBg       color.RGBA
	tagText     color.RGBA
	titleColor  color.RGBA
	descColor   color.RGBA
	brandColor  color.RGBA
	accentColor color.RGBA
}

var palettes = map[string]palette{
	"dark": {
		background:  color.RGBA{20, 20, 25, 255},
		cardBg:      color.RGBA{45, 45, 50, 255},
		tagBg:       color.RGBA{87, 167, 255, 255},
		tagText:     color.RGBA{20, 20, 25, 255},
		titleColor:  color.RGBA{255, 255, 255, 255},
		descColor:   color.RGBA{200, 200, 205, 255},
		brandColor:  color.RGBA{150, 150, 155, 255},
		accentColor: color.RGBA{87, 167, 255, 255},
	},
	"light": {
		background:  color.RGBA{245, 245, 248, 255},
		cardBg:      color.RGBA{255, 255, 255, 255},
		tagBg:       color.RGBA{20, 20, 25, 255},
		tagText:     color.RGBA{255, 255, 255, 255},
		titleColor:  color.RGBA{0, 51, 102, 255},
		descColor:   color.RGBA{80, 80, 85, 255},
		brandColor:  color.RGBA{20, 20, 25, 255},
		accentColor: color.RGBA{50, 205, 50, 255},
	},
}

type fontFaces struct {
	title font.Face
	body  font.Face
	tag   font.Face
	brand font.Face
}

var (
	facesOnce   sync.Once
	cachedFaces *fontFaces
	facesErr    error
)

func loadFaces() (*fontFaces, error) {
	facesOnce.Do(func() {
		cachedFaces, facesErr = parseFaces()
	})
	return cachedFaces, facesErr
}

func parseFaces() (*fontFaces, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	italic, err := opentype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse italic font: %w", err)
	}

	faces := &fontFaces{}

	if faces.title, err = newFace(bold, 48); err != nil {
		return nil, err
	}
	if faces.body, err = newFace(regular, 30); err != nil {
		return nil, err
	}
	if faces.tag, err = newFace(bold, 26); err != nil {
		return nil, err
	}
	if faces.brand, err = newFace(italic, 24); err != nil {
		return nil, err
	}

	return faces, nil
}

func newFace(f *sfnt.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
