package chess

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type pieceKey struct {
	piece nchess.Piece
	size  int
}

// pieceSprites caches rasterised pieces per size; the board is redrawn on
// every peek so the same twelve images are reused.
var pieceSprites sync.Map

func pieceSprite(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceKey{piece: piece, size: size}
	if img, ok := pieceSprites.Load(key); ok {
		return img.(image.Image), nil
	}

	name := pieceAssetName(piece)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	actual, _ := pieceSprites.LoadOrStore(key, image.Image(img))
	return actual.(image.Image), nil
}

func pieceAssetName(piece nchess.Piece) string {
	prefix := "b"
	if piece.Color() == nchess.White {
		prefix = "w"
	}
	letter := "P"
	switch piece.Type() {
	case nchess.King:
		letter = "K"
	case nchess.Queen:
		letter = "Q"
	case nchess.Rook:
		letter = "R"
	case nchess.Bishop:
		letter = "B"
	case nchess.Knight:
		letter = "N"
	}
	return fmt.Sprintf("assets/pieces/%s%s.svg", prefix, letter)
}
