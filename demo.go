/*

The top-level Demo type: owns the raw bytes and drives header + frame
parsing.

*/

package tf2demo

import "github.com/gethexdemo/tf2demo/bitstream"

// Demo wraps the raw bytes of a single .dem file.
type Demo struct {
	contents []byte
}

// NewDemo wraps contents as a Demo. The bytes are borrowed for the lifetime
// of any parse using them.
func NewDemo(contents []byte) *Demo {
	return &Demo{contents: contents}
}

// Reader returns a fresh bitstream.Reader positioned at the start of the demo.
func (d *Demo) Reader() *bitstream.Reader {
	return bitstream.NewReader(d.contents)
}

// Frames iterates every frame in the demo body (the header must already have
// been consumed from r). Iteration stops at a Stop frame, at end of stream,
// or on the first error; yield's second (error) argument is non-nil only on
// the last call.
func (d *Demo) Frames(r *bitstream.Reader, yield func(Frame, error) bool) {
	for {
		f, ok, err := ReadFrame(r)
		if err != nil {
			yield(Frame{}, err)
			return
		}
		if !ok {
			return
		}
		if !yield(f, nil) {
			return
		}
		if f.Type == FrameStop {
			return
		}
	}
}
