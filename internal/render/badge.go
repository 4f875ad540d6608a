package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Standard ball colors; 9-15 reuse 1-7 as stripes.
var ballColors = map[int]string{
	1: "#FDD017",
	2: "#1F4FD8",
	3: "#D6231F",
	4: "#6A1FA8",
	5: "#F07818",
	6: "#1C8A3A",
	7: "#7A2020",
	8: "#111111",
}

type badgeCacheKey struct {
	ball int
	size int
}

var (
	badgeCache   = map[badgeCacheKey]image.Image{}
	badgeCacheMu sync.RWMutex
)

// ballBadge rasterizes a numbered pool-ball badge at the given pixel size.
func ballBadge(ball, size int) (image.Image, error) {
	key := badgeCacheKey{ball: ball, size: size}

	badgeCacheMu.RLock()
	if img, ok := badgeCache[key]; ok {
		badgeCacheMu.RUnlock()
		return img, nil
	}
	badgeCacheMu.RUnlock()

	data := ballSVG(ball)
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse ball svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	drawBadgeNumber(img, ball, size)

	badgeCacheMu.Lock()
	badgeCache[key] = img
	badgeCacheMu.Unlock()

	return img, nil
}

// ballSVG builds the badge artwork. Solids are a colored disc, stripes a
// white disc with a colored band; both carry a white number circle. The
// number itself is drawn after rasterization since the SVG engine has no
// text support.
func ballSVG(ball int) []byte {
	clr, ok := ballColors[ball]
	if !ok {
		clr = ballColors[((ball-1)%7)+1]
	}

	var b bytes.Buffer
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">`)
	if ball > 8 {
		b.WriteString(`<circle cx="50" cy="50" r="48" fill="#FFFFFF"/>`)
		fmt.Fprintf(&b, `<rect x="8" y="28" width="84" height="44" rx="22" fill="%s"/>`, clr)
	} else {
		fmt.Fprintf(&b, `<circle cx="50" cy="50" r="48" fill="%s"/>`, clr)
	}
	b.WriteString(`<circle cx="50" cy="50" r="21" fill="#FFFFFF"/>`)
	b.WriteString(`<circle cx="50" cy="50" r="48" fill="none" stroke="#222222" stroke-width="2"/>`)
	b.WriteString(`</svg>`)
	return b.Bytes()
}

func drawBadgeNumber(img *image.RGBA, ball, size int) {
	text := strconv.Itoa(ball)
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	width := drawer.MeasureString(text).Ceil()
	drawer.Dot = fixed.Point26_6{
		X: fixed.I((size - width) / 2),
		Y: fixed.I(size/2 + face.Height/2 - 2),
	}
	drawer.DrawString(text)
}
