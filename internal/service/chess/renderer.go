package chess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	// Orientation is the side drawn at the bottom.
	Orientation nchess.Color
	Highlight   *MoveHighlight
	Caption     string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

type pngBoardRenderer struct {
	squareSize int
}

func NewBoardRenderer(squareSize int) BoardRenderer {
	if squareSize < 24 {
		squareSize = 48
	}
	return &pngBoardRenderer{squareSize: squareSize}
}

func (r *pngBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := r.squareSize
	margin := size / 2
	captionHeight := 0
	if strings.TrimSpace(opts.Caption) != "" {
		captionHeight = 24
	}
	layout := boardLayout{
		squareSize: size,
		origin:     image.Point{X: margin, Y: margin + captionHeight},
		flipped:    opts.Orientation == nchess.Black,
	}

	total := size*8 + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total+captionHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	drawCaption(img, opts.Caption, margin, captionHeight)
	drawSquares(img, layout)
	drawHighlight(img, board, opts.Highlight, layout)
	if err := drawPieces(img, board, layout); err != nil {
		return nil, err
	}
	drawCoordinates(img, layout, margin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	frameColor          = color.RGBA{28, 31, 46, 255}
	whiteMoveFill       = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow      = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveArrow    = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	captionTextColor    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	boardFiles          = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
	boardRanksTopDown   = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
)

type boardLayout struct {
	squareSize int
	origin     image.Point
	flipped    bool
}

// cell returns the screen column and row of sq.
func (l boardLayout) cell(sq nchess.Square) (int, int) {
	col, row := int(sq.File()), 7-int(sq.Rank())
	if l.flipped {
		col, row = 7-col, 7-row
	}
	return col, row
}

func (l boardLayout) rect(sq nchess.Square) image.Rectangle {
	col, row := l.cell(sq)
	x := l.origin.X + col*l.squareSize
	y := l.origin.Y + row*l.squareSize
	return image.Rect(x, y, x+l.squareSize, y+l.squareSize)
}

func (l boardLayout) center(sq nchess.Square) pointF {
	r := l.rect(sq)
	return pointF{X: float64(r.Min.X + l.squareSize/2), Y: float64(r.Min.Y + l.squareSize/2)}
}

func drawCaption(img *image.RGBA, caption string, margin, height int) {
	caption = strings.TrimSpace(caption)
	if caption == "" || height == 0 {
		return
	}
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(captionTextColor)}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	drawer.Dot = fixed.P(margin, margin/2+(height+ascent)/2)
	drawer.DrawString(caption)
}

func drawSquares(dst imagedraw.Image, l boardLayout) {
	for _, rank := range boardRanksTopDown {
		for _, file := range boardFiles {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, l.rect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, l boardLayout) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := pieceSprite(piece, l.squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, l.rect(sq), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawHighlight fills both squares of a white move and draws an arrow for a
// black move.
func drawHighlight(img *image.RGBA, board *nchess.Board, highlight *MoveHighlight, l boardLayout) {
	if highlight == nil {
		return
	}
	mover := nchess.NoColor
	if piece := board.Piece(highlight.To); piece != nchess.NoPiece {
		mover = piece.Color()
	}
	switch mover {
	case nchess.White:
		imagedraw.Draw(img, l.rect(highlight.From), image.NewUniform(whiteMoveFill), image.Point{}, imagedraw.Over)
		imagedraw.Draw(img, l.rect(highlight.To), image.NewUniform(whiteMoveFill), image.Point{}, imagedraw.Over)
	case nchess.Black:
		drawArrow(img, l.center(highlight.From), l.center(highlight.To), float64(l.squareSize), blackMoveArrow)
	default:
		drawArrow(img, l.center(highlight.From), l.center(highlight.To), float64(l.squareSize), neutralMoveArrow)
	}
}

func drawArrow(img *image.RGBA, start, end pointF, squareSize float64, clr color.Color) {
	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - squareSize*0.45
	if baseLength < squareSize*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := squareSize * 0.18
	headWidth := squareSize * 0.32

	baseX := start.X + dirX*baseLength
	baseY := start.Y + dirY*baseLength

	fillQuad(img,
		pointF{X: start.X - perpX*halfWidth, Y: start.Y - perpY*halfWidth},
		pointF{X: start.X + perpX*halfWidth, Y: start.Y + perpY*halfWidth},
		pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth},
		pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		end,
		pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2},
		pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2},
		clr,
	)
}

func drawCoordinates(dst imagedraw.Image, l boardLayout, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()

	for _, rank := range boardRanksTopDown {
		r := l.rect(nchess.NewSquare(nchess.FileA, rank))
		drawCenteredText(drawer, rank.String(), l.origin.X-margin/2, r.Min.Y+l.squareSize/2+ascent/2)
	}
	bottom := l.origin.Y + 8*l.squareSize
	for _, file := range boardFiles {
		r := l.rect(nchess.NewSquare(file, nchess.Rank1))
		drawCenteredText(drawer, file.String(), r.Min.X+l.squareSize/2, bottom+ascent)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	// clr.RGBA is premultiplied, as is image.RGBA.
	dst := img.RGBAAt(x, y)
	inv := 1 - srcA
	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(float64(sr)/257.0 + float64(dst.R)*inv),
		G: floatToUint8(float64(sg)/257.0 + float64(dst.G)*inv),
		B: floatToUint8(float64(sb)/257.0 + float64(dst.B)*inv),
		A: floatToUint8(srcA*255.0 + float64(dst.A)*inv),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}
