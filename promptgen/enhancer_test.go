package promptgen

import (
	"context"
	"strings"
	"testing"

	"tourloop/types"
)

func TestTemplateEnhancerDescribesMoves(t *testing.T) {
	tests := []struct {
		name string
		from *types.Waypoint
		to   *types.Waypoint
		want []string
	}{
		{
			name: "orbit right",
			from: &types.Waypoint{Azimuth: 0},
			to:   &types.Waypoint{Azimuth: 90},
			want: []string{"orbit right 90"},
		},
		{
			name: "orbit left across the wrap",
			from: &types.Waypoint{Azimuth: 10},
			to:   &types.Waypoint{Azimuth: 350},
			want: []string{"orbit left 20"},
		},
		{
			name: "tilt and dolly",
			from: &types.Waypoint{Elevation: 0, Distance: 10},
			to:   &types.Waypoint{Elevation: 20, Distance: 5},
			want: []string{"tilt up", "dolly in"},
		},
		{
			name: "no significant move",
			from: &types.Waypoint{Azimuth: 1},
			to:   &types.Waypoint{Azimuth: 3},
			want: []string{"subtle camera drift"},
		},
	}

	enhancer := TemplateEnhancer{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enhancer.MotionPrompt(context.Background(), tt.from, tt.to)
			if err != nil {
				t.Fatalf("MotionPrompt failed: %v", err)
			}
			for _, phrase := range tt.want {
				if !strings.Contains(got, phrase) {
					t.Errorf("Expected %q in prompt %q", phrase, got)
				}
			}
		})
	}
}

func TestTemplateEnhancerNilWaypoints(t *testing.T) {
	got, err := TemplateEnhancer{}.MotionPrompt(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("MotionPrompt failed: %v", err)
	}
	if got == "" {
		t.Error("Expected a fallback prompt for nil waypoints")
	}
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{190, -170},
		{-190, 170},
		{360, 0},
		{540, 180},
	}
	for _, tt := range tests {
		if got := normalizeDegrees(tt.in); got != tt.want {
			t.Errorf("normalizeDegrees(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
