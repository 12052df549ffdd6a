// Package types contains the data exchanged between nodes of the robot runtime.
package types

import "math"

// Point2 is a position in a 2D frame, in meters
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vector2 is a displacement or velocity in a 2D frame
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Origin is the origin of any frame
var Origin = Point2{}

// Coords returns the vector from the origin to p
func (p Point2) Coords() Vector2 {
	return Vector2{X: p.X, Y: p.Y}
}

// Add translates the point by v
func (p Point2) Add(v Vector2) Point2 {
	return Point2{X: p.X + v.X, Y: p.Y + v.Y}
}

// Sub returns the vector from q to p
func (p Point2) Sub(q Point2) Vector2 {
	return Vector2{X: p.X - q.X, Y: p.Y - q.Y}
}

// DistanceTo returns the euclidean distance between two points
func (p Point2) DistanceTo(q Point2) float64 {
	return p.Sub(q).Norm()
}

// Norm returns the euclidean length
func (v Vector2) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns the unit vector in the direction of v.
// The zero vector stays zero.
func (v Vector2) Normalize() Vector2 {
	n := v.Norm()
	if n == 0 {
		return Vector2{}
	}
	return Vector2{X: v.X / n, Y: v.Y / n}
}

// Scale multiplies both components by s
func (v Vector2) Scale(s float64) Vector2 {
	return Vector2{X: v.X * s, Y: v.Y * s}
}

// Add returns v + w
func (v Vector2) Add(w Vector2) Vector2 {
	return Vector2{X: v.X + w.X, Y: v.Y + w.Y}
}

// Angle returns the direction of v in radians
func (v Vector2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Isometry2 is a rigid transform: a rotation followed by a translation
type Isometry2 struct {
	Translation Vector2 `json:"translation"`
	Rotation    float64 `json:"rotation"`
}

// NewIsometry2 builds a transform from translation and rotation angle
func NewIsometry2(x, y, rotation float64) Isometry2 {
	return Isometry2{Translation: Vector2{X: x, Y: y}, Rotation: rotation}
}

// TransformVector rotates v
func (t Isometry2) TransformVector(v Vector2) Vector2 {
	sin, cos := math.Sincos(t.Rotation)
	return Vector2{
		X: cos*v.X - sin*v.Y,
		Y: sin*v.X + cos*v.Y,
	}
}

// TransformPoint rotates then translates p
func (t Isometry2) TransformPoint(p Point2) Point2 {
	return Origin.Add(t.TransformVector(p.Coords())).Add(t.Translation)
}

// Inverse returns the transform mapping back into the source frame
func (t Isometry2) Inverse() Isometry2 {
	inverse := Isometry2{Rotation: -t.Rotation}
	inverse.Translation = inverse.TransformVector(t.Translation).Scale(-1)
	return inverse
}

// Compose returns t * other, applying other first
func (t Isometry2) Compose(other Isometry2) Isometry2 {
	return Isometry2{
		Translation: t.TransformVector(other.Translation).Add(t.Translation),
		Rotation:    NormalizeAngle(t.Rotation + other.Rotation),
	}
}

// NormalizeAngle wraps an angle into [-pi, pi)
func NormalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle+math.Pi, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// Clamp limits v to [lower, upper]
func Clamp(v, lower, upper float64) float64 {
	return math.Min(math.Max(v, lower), upper)
}
