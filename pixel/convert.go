package pixel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimensions indicates a frame geometry the packed formats
	// cannot represent.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")

	// ErrBufferSize indicates a buffer that does not match the exact size
	// the conversion requires.
	ErrBufferSize = errors.New("pixel buffer size mismatch")
)

// opaqueAlpha is the alpha value stamped on every RGBA pixel.
const opaqueAlpha = 0xFF

func checkGeometry(height, width int) error {
	if height <= 0 || width <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width%2 != 0 {
		return fmt.Errorf("%w: width %d must be even for 4:2:2 sampling",
			ErrInvalidDimensions, width)
	}
	return nil
}

// RGBToYUV packs an RGB24 frame into UYVY 4:2:2. Luma is computed per
// pixel; chroma is averaged across each horizontal pixel pair before
// subsampling. rgb must hold height*width*3 bytes and yuv height*width*2.
func RGBToYUV(height, width int, rgb, yuv []byte) error {
	if err := checkGeometry(height, width); err != nil {
		return err
	}
	if len(rgb) != height*width*3 {
		return fmt.Errorf("%w: rgb is %d bytes, want %d", ErrBufferSize, len(rgb), height*width*3)
	}
	if len(yuv) != height*width*2 {
		return fmt.Errorf("%w: yuv is %d bytes, want %d", ErrBufferSize, len(yuv), height*width*2)
	}

	for i := 0; i < height*width; i += 2 {
		r0, g0, b0 := int(rgb[i*3]), int(rgb[i*3+1]), int(rgb[i*3+2])
		r1, g1, b1 := int(rgb[i*3+3]), int(rgb[i*3+4]), int(rgb[i*3+5])

		// BT.601 studio swing: Y in [16,235], chroma in [16,240], so the
		// results never need clamping for in-range input.
		y0 := ((66*r0 + 129*g0 + 25*b0 + 128) >> 8) + 16
		y1 := ((66*r1 + 129*g1 + 25*b1 + 128) >> 8) + 16

		ra, ga, ba := (r0+r1+1)>>1, (g0+g1+1)>>1, (b0+b1+1)>>1
		u := ((-38*ra - 74*ga + 112*ba + 128) >> 8) + 128
		v := ((112*ra - 94*ga - 18*ba + 128) >> 8) + 128

		j := i * 2
		yuv[j] = byte(u)
		yuv[j+1] = byte(y0)
		yuv[j+2] = byte(v)
		yuv[j+3] = byte(y1)
	}
	return nil
}

// YUVToRGB expands a packed UYVY 4:2:2 frame into RGB24 triplets, one per
// pixel, sharing each chroma sample across its horizontal pixel pair. yuv
// must hold height*width*2 bytes and rgb height*width*3.
func YUVToRGB(height, width int, yuv, rgb []byte) error {
	if err := checkGeometry(height, width); err != nil {
		return err
	}
	if len(yuv) != height*width*2 {
		return fmt.Errorf("%w: yuv is %d bytes, want %d", ErrBufferSize, len(yuv), height*width*2)
	}
	if len(rgb) != height*width*3 {
		return fmt.Errorf("%w: rgb is %d bytes, want %d", ErrBufferSize, len(rgb), height*width*3)
	}

	for i := 0; i < len(yuv); i += 4 {
		u := int(yuv[i]) - 128
		y0 := int(yuv[i+1]) - 16
		v := int(yuv[i+2]) - 128
		y1 := int(yuv[i+3]) - 16

		j := i / 4 * 6
		rgb[j+0] = clamp((298*y0 + 409*v + 128) >> 8)
		rgb[j+1] = clamp((298*y0 - 100*u - 208*v + 128) >> 8)
		rgb[j+2] = clamp((298*y0 + 516*u + 128) >> 8)
		rgb[j+3] = clamp((298*y1 + 409*v + 128) >> 8)
		rgb[j+4] = clamp((298*y1 - 100*u - 208*v + 128) >> 8)
		rgb[j+5] = clamp((298*y1 + 516*u + 128) >> 8)
	}
	return nil
}

// YUVToRGBA expands a packed UYVY 4:2:2 frame into RGBA quads with a fixed
// opaque alpha. yuv must hold height*width*2 bytes and rgba height*width*4.
func YUVToRGBA(height, width int, yuv, rgba []byte) error {
	if err := checkGeometry(height, width); err != nil {
		return err
	}
	if len(yuv) != height*width*2 {
		return fmt.Errorf("%w: yuv is %d bytes, want %d", ErrBufferSize, len(yuv), height*width*2)
	}
	if len(rgba) != height*width*4 {
		return fmt.Errorf("%w: rgba is %d bytes, want %d", ErrBufferSize, len(rgba), height*width*4)
	}

	for i := 0; i < len(yuv); i += 4 {
		u := int(yuv[i]) - 128
		y0 := int(yuv[i+1]) - 16
		v := int(yuv[i+2]) - 128
		y1 := int(yuv[i+3]) - 16

		j := i * 2
		rgba[j+0] = clamp((298*y0 + 409*v + 128) >> 8)
		rgba[j+1] = clamp((298*y0 - 100*u - 208*v + 128) >> 8)
		rgba[j+2] = clamp((298*y0 + 516*u + 128) >> 8)
		rgba[j+3] = opaqueAlpha
		rgba[j+4] = clamp((298*y1 + 409*v + 128) >> 8)
		rgba[j+5] = clamp((298*y1 - 100*u - 208*v + 128) >> 8)
		rgba[j+6] = clamp((298*y1 + 516*u + 128) >> 8)
		rgba[j+7] = opaqueAlpha
	}
	return nil
}

// clamp saturates the conversion arithmetic to one byte.
func clamp(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
