package ragdoll

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// TraceRecord is the state of one active body at the end of a frame
type TraceRecord struct {
	Frame     int     `csv:"frame"`
	Time      float64 `csv:"time"`
	Body      int     `csv:"body"`
	Bone      int     `csv:"bone"`
	Simulated bool    `csv:"simulated"`
	X         float64 `csv:"x"`
	Y         float64 `csv:"y"`
	Z         float64 `csv:"z"`
	Speed     float64 `csv:"speed"`
}

// Trace returns one record per active body, positions in simulation space
func (n *Node) Trace(frame int, time float64) []TraceRecord {
	if n.topology == nil {
		return nil
	}

	records := make([]TraceRecord, 0, n.numActive)
	for i, body := range n.topology.Bodies[:n.numActive] {
		position := body.Actor.GetWorldTransform().Position
		records = append(records, TraceRecord{
			Frame:     frame,
			Time:      time,
			Body:      i,
			Bone:      body.BoneIndex,
			Simulated: body.Simulated,
			X:         position.X(),
			Y:         position.Y(),
			Z:         position.Z(),
			Speed:     body.Actor.Velocity.Len(),
		})
	}

	return records
}

// TraceWriter writes trace records as CSV, the header only once
type TraceWriter struct {
	w             io.Writer
	headerWritten bool
}

func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{w: w}
}

func (t *TraceWriter) Write(records []TraceRecord) error {
	if len(records) == 0 {
		return nil
	}

	if !t.headerWritten {
		if err := gocsv.Marshal(records, t.w); err != nil {
			return fmt.Errorf("writing trace: %w", err)
		}
		t.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, t.w); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}

	return nil
}
