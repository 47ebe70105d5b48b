package extraction

import (
	"bytes"
	"fmt"

	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/encoding"
	"github.com/disintegration/imaging"
)

// enhance prepares a scan for transcription: grayscale, raised contrast,
// and a light sharpen. The result is always PNG.
func enhance(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func imageDataURI(data []byte) (string, error) {
	png, err := enhance(data)
	if err != nil {
		return "", err
	}
	return encoding.EncodeImageDataURI(png, document.PNG)
}
