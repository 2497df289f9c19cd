package qrsvg

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/boombuler/barcode/qr"
	"github.com/skip2/go-qrcode"
)

// Encoder names accepted by Options.Encoder.
const (
	EncoderSkip2     = "skip2"
	EncoderBoombuler = "boombuler"
)

// Level is a QR error correction level.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"
)

// ParseLevel accepts L, M, Q or H in any case.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelL, LevelM, LevelQ, LevelH:
		return l, nil
	}
	return "", fmt.Errorf("qrsvg: unknown error correction level %q", s)
}

// Matrix holds dark modules indexed [row][column]; it is always square.
type Matrix [][]bool

// Size is the number of modules per side.
func (m Matrix) Size() int { return len(m) }


// Encoder turns content into a module matrix without a quiet zone.
type Encoder interface {
	Encode(content string, level Level) (Matrix, error)
}

func encoderFor(name string) (Encoder, error) {
	switch strings.ToLower(name) {
	case EncoderSkip2:
		return skip2Encoder{}, nil
	case EncoderBoombuler:
		return boombulerEncoder{}, nil
	}
	return nil, fmt.Errorf("qrsvg: unknown encoder %q", name)
}

type skip2Encoder struct{}

func (skip2Encoder) Encode(content string, level Level) (Matrix, error) {
	rl := map[Level]qrcode.RecoveryLevel{
		LevelL: qrcode.Low,
		LevelM: qrcode.Medium,
		LevelQ: qrcode.High,
		LevelH: qrcode.Highest,
	}[level]
	q, err := qrcode.New(content, rl)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	return Matrix(q.Bitmap()), nil
}

type boombulerEncoder struct{}

func (boombulerEncoder) Encode(content string, level Level) (Matrix, error) {
	el := map[Level]qr.ErrorCorrectionLevel{
		LevelL: qr.L,
		LevelM: qr.M,
		LevelQ: qr.Q,
		LevelH: qr.H,
	}[level]
	code, err := qr.Encode(content, el, qr.Auto)
	if err != nil {
		return nil, err
	}
	b := code.Bounds()
	m := make(Matrix, b.Dy())
	for y := range m {
		m[y] = make([]bool, b.Dx())
		for x := range m[y] {
			g := color.GrayModel.Convert(code.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m[y][x] = g.Y < 128
		}
	}
	return m, nil
}
