package report

import (
	"encoding/xml"
	"io"
)

// ReadFrames returns every <frame> element of a report.
func ReadFrames(r io.Reader) ([]FrameObject, error) {
	dec := xml.NewDecoder(r)

	var frames []FrameObject
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}

		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "frame" {
			var obj FrameObject
			if err := dec.DecodeElement(&obj, &start); err != nil {
				return nil, err
			}
			frames = append(frames, obj)
		}
	}
}
