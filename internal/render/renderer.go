package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"github.com/ecopool/league-server/internal/scorecard"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TableRenderer draws a scorecard state as an overlay PNG.
type TableRenderer interface {
	RenderPNG(ctx context.Context, state scorecard.GameState) ([]byte, error)
}

type svgTableRenderer struct{}

func NewTableRenderer() TableRenderer {
	return &svgTableRenderer{}
}

var (
	feltColor   = color.RGBA{R: 0x0E, G: 0x6B, B: 0x3A, A: 0xFF}
	railColor   = color.RGBA{R: 0x5A, G: 0x32, B: 0x1E, A: 0xFF}
	pocketColor = color.RGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xFF}
	bgColor     = color.RGBA{R: 0x1A, G: 0x1A, B: 0x22, A: 0xFF}
	trayColor   = color.RGBA{R: 0x24, G: 0x24, B: 0x2E, A: 0xFF}
	textColor   = color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}
	goldColor   = color.RGBA{R: 0xFF, G: 0xD7, B: 0x00, A: 0xFF}
)

func (r *svgTableRenderer) RenderPNG(ctx context.Context, state scorecard.GameState) ([]byte, error) {
	const (
		width      = 640
		height     = 480
		railWidth  = 18
		headerTop  = 8
		tableTop   = 70
		tableLeft  = 40
		tableW     = 560
		tableH     = 280
		pocketR    = 14
		ballSize   = 34
		trayTop    = 384
		trayHeight = 44
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(bgColor), image.Point{}, imagedraw.Src)

	// Header: team names, scores, group assignment.
	drawHeader(img, state, width, headerTop)

	// Table: wooden rail, felt, six pockets.
	railRect := image.Rect(tableLeft, tableTop, tableLeft+tableW, tableTop+tableH)
	imagedraw.Draw(img, railRect, image.NewUniform(railColor), image.Point{}, imagedraw.Src)
	feltRect := railRect.Inset(railWidth)
	imagedraw.Draw(img, feltRect, image.NewUniform(feltColor), image.Point{}, imagedraw.Src)
	for _, p := range pocketCenters(feltRect) {
		fillCircle(img, p.X, p.Y, pocketR, pocketColor)
	}

	// Balls still on the table, racked in rows across the felt.
	onTable := make([]int, 0, 15)
	for ball := 1; ball <= 15; ball++ {
		if state.BallStates[ball] == scorecard.BallOnTable {
			onTable = append(onTable, ball)
		}
	}
	const perRow = 5
	for i, ball := range onTable {
		row, col := i/perRow, i%perRow
		x := feltRect.Min.X + 50 + col*(ballSize+60)
		y := feltRect.Min.Y + 30 + row*(ballSize+40)
		if err := blitBadge(img, ball, x, y, ballSize); err != nil {
			return nil, err
		}
	}

	// Pocketed trays, one per team.
	if err := drawTray(img, state, 1, tableLeft, trayTop, tableW/2-10, trayHeight, ballSize); err != nil {
		return nil, err
	}
	if err := drawTray(img, state, 2, tableLeft+tableW/2+10, trayTop, tableW/2-10, trayHeight, ballSize); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHeader(img *image.RGBA, state scorecard.GameState, width, top int) {
	face := basicfont.Face7x13
	line1 := fmt.Sprintf("%s  %d - %d  %s",
		state.Team1Name, state.Team1Score, state.Team2Score, state.Team2Name)
	drawCenteredText(img, face, line1, width, top+14, textColor)

	line2 := fmt.Sprintf("Table %d  Game %d", state.Table, state.GameNum)
	if state.TeamOneGroup != scorecard.GroupNone {
		line2 += fmt.Sprintf("  |  %s: %s", state.Team1Name, state.TeamOneGroup)
	}
	drawCenteredText(img, face, line2, width, top+32, textColor)

	switch {
	case state.GoldenBreak:
		banner := fmt.Sprintf("GOLDEN BREAK - Team %d wins!", state.WinnerTeam)
		drawCenteredText(img, face, banner, width, top+50, goldColor)
	case state.WinnerTeam > 0:
		banner := fmt.Sprintf("Winner: Team %d", state.WinnerTeam)
		drawCenteredText(img, face, banner, width, top+50, goldColor)
	}
}

func drawTray(img *image.RGBA, state scorecard.GameState, team, x, y, w, h, ballSize int) error {
	rect := image.Rect(x, y, x+w, y+h)
	imagedraw.Draw(img, rect, image.NewUniform(trayColor), image.Point{}, imagedraw.Src)

	want := scorecard.BallPocketedTeam1
	if team == 2 {
		want = scorecard.BallPocketedTeam2
	}
	small := ballSize * 3 / 4
	col := 0
	for ball := 1; ball <= 15; ball++ {
		if state.BallStates[ball] != want {
			continue
		}
		bx := x + 6 + col*(small+2)
		if bx+small > x+w {
			break
		}
		if err := blitBadge(img, ball, bx, y+(h-small)/2, small); err != nil {
			return err
		}
		col++
	}
	return nil
}

func blitBadge(img *image.RGBA, ball, x, y, size int) error {
	badge, err := ballBadge(ball, size)
	if err != nil {
		return err
	}
	target := image.Rect(x, y, x+size, y+size)
	imagedraw.Draw(img, target, badge, image.Point{}, imagedraw.Over)
	return nil
}

func drawCenteredText(img *image.RGBA, face font.Face, text string, width, baseline int, clr color.Color) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
	}
	w := drawer.MeasureString(text).Ceil()
	drawer.Dot = fixed.Point26_6{X: fixed.I((width - w) / 2), Y: fixed.I(baseline)}
	drawer.DrawString(text)
}

func pocketCenters(felt image.Rectangle) []image.Point {
	midX := (felt.Min.X + felt.Max.X) / 2
	return []image.Point{
		{X: felt.Min.X, Y: felt.Min.Y},
		{X: midX, Y: felt.Min.Y},
		{X: felt.Max.X, Y: felt.Min.Y},
		{X: felt.Min.X, Y: felt.Max.Y},
		{X: midX, Y: felt.Max.Y},
		{X: felt.Max.X, Y: felt.Max.Y},
	}
}

func fillCircle(img *image.RGBA, cx, cy, r int, clr color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.Set(cx+dx, cy+dy, clr)
			}
		}
	}
}
