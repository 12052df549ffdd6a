package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsometry2_InverseRoundTrip(t *testing.T) {
	groundToField := NewIsometry2(1.5, -2.0, math.Pi/3)
	p := Point2{X: 0.7, Y: 0.2}

	back := groundToField.Inverse().TransformPoint(groundToField.TransformPoint(p))

	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestIsometry2_Compose(t *testing.T) {
	a := NewIsometry2(1, 0, math.Pi/2)
	b := NewIsometry2(0, 2, 0)
	p := Point2{X: 1, Y: 1}

	composed := a.Compose(b).TransformPoint(p)
	stepwise := a.TransformPoint(b.TransformPoint(p))

	assert.InDelta(t, stepwise.X, composed.X, 1e-9)
	assert.InDelta(t, stepwise.Y, composed.Y, 1e-9)
}

func TestVector2_NormalizeZero(t *testing.T) {
	assert.Equal(t, Vector2{}, Vector2{}.Normalize())
	assert.InDelta(t, 1.0, Vector2{X: 3, Y: 4}.Normalize().Norm(), 1e-12)
}

func TestPathLength(t *testing.T) {
	path := Path{
		LineSegment{Start: Point2{}, End: Point2{X: 3, Y: 4}},
		Arc{Center: Point2{}, Radius: 2, StartAngle: 0, EndAngle: math.Pi / 2},
	}
	assert.InDelta(t, 5+math.Pi, path.Length(), 1e-12)
}

func TestEnumText(t *testing.T) {
	data, err := json.Marshal(Action{Kind: ActionDefendOpponentCornerKick, Side: SideRight})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"defend_opponent_corner_kick","side":"right"}`, string(data))

	var role Role
	require.NoError(t, json.Unmarshal([]byte(`"keeper"`), &role))
	assert.Equal(t, RoleKeeper, role)
	assert.Error(t, json.Unmarshal([]byte(`"goalie"`), &role))

	assert.Len(t, AllActionKinds(), 22)
	assert.Equal(t, "unknown", ActionKind(99).String())
}
