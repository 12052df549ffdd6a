package types

import (
	"encoding/json"
	"math"
)

// PathSegment is one primitive of a planned walking path
type PathSegment interface {
	Length() float64
}

// LineSegment is a straight piece of path
type LineSegment struct {
	Start Point2 `json:"start"`
	End   Point2 `json:"end"`
}

// Length returns the distance between start and end
func (l LineSegment) Length() float64 {
	return l.Start.DistanceTo(l.End)
}

// MarshalJSON tags the segment kind for telemetry consumers
func (l LineSegment) MarshalJSON() ([]byte, error) {
	type plain LineSegment
	return json.Marshal(struct {
		Kind string `json:"kind"`
		plain
	}{Kind: "line", plain: plain(l)})
}

// Arc is a circular piece of path walked around Center
type Arc struct {
	Center     Point2  `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

// Length returns the arc length, radius times the swept angle
func (a Arc) Length() float64 {
	return a.Radius * math.Abs(a.EndAngle-a.StartAngle)
}

// MarshalJSON tags the segment kind for telemetry consumers
func (a Arc) MarshalJSON() ([]byte, error) {
	type plain Arc
	return json.Marshal(struct {
		Kind string `json:"kind"`
		plain
	}{Kind: "arc", plain: plain(a)})
}

// Path is an ordered sequence of segments
type Path []PathSegment

// Length returns the summed length of all segments
func (p Path) Length() float64 {
	total := 0.0
	for _, segment := range p {
		total += segment.Length()
	}
	return total
}
