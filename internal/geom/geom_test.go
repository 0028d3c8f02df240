package geom

import (
	"testing"

	"github.com/paulmach/orb"
)

var square = orb.MultiPolygon{{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}}

func tri(a, b, c orb.Point) orb.Ring { return orb.Ring{a, b, c, a} }

func TestPlanarBufferedIntersects(t *testing.T) {
	cases := []struct {
		name string
		face orb.Ring
		d    float64
		want bool
	}{
		{"inside", tri(orb.Point{1, 1}, orb.Point{2, 1}, orb.Point{2, 2}), 0, true},
		{"crossing edge", tri(orb.Point{9, 5}, orb.Point{12, 5}, orb.Point{12, 6}), 0, true},
		{"covers footprint", tri(orb.Point{-100, -100}, orb.Point{100, -100}, orb.Point{0, 100}), 0, true},
		{"touching", tri(orb.Point{10, 2}, orb.Point{12, 2}, orb.Point{12, 4}), 0, true},
		{"within buffer", tri(orb.Point{10.0005, 2}, orb.Point{12, 2}, orb.Point{12, 4}), DefaultBuffer, true},
		{"outside buffer", tri(orb.Point{10.002, 2}, orb.Point{12, 2}, orb.Point{12, 4}), DefaultBuffer, false},
		{"far away", tri(orb.Point{50, 50}, orb.Point{51, 50}, orb.Point{51, 51}), DefaultBuffer, false},
		{"collinear inside", orb.Ring{{1, 1}, {2, 2}, {3, 3}, {1, 1}}, DefaultBuffer, false},
		{"two points", orb.Ring{{1, 1}, {2, 2}, {1, 1}, {1, 1}}, DefaultBuffer, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (Planar{}).BufferedIntersects(tc.face, square, tc.d); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlanarRespectsHoles(t *testing.T) {
	courtyard := orb.MultiPolygon{{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{3, 3}, {3, 7}, {7, 7}, {7, 3}, {3, 3}},
	}}
	face := tri(orb.Point{4, 4}, orb.Point{6, 4}, orb.Point{6, 6})
	if (Planar{}).BufferedIntersects(face, courtyard, DefaultBuffer) {
		t.Fatal("face inside the hole should not match")
	}
	edge := tri(orb.Point{4, 4}, orb.Point{6, 4}, orb.Point{6, 6.9995})
	if !(Planar{}).BufferedIntersects(edge, courtyard, DefaultBuffer) {
		t.Fatal("face within buffer of the hole edge should match")
	}
}

func TestDegenerate(t *testing.T) {
	utm := tri(orb.Point{692827.46065, 9326588.60235}, orb.Point{692828.46065, 9326588.60235}, orb.Point{692828.46065, 9326589.60235})
	if Degenerate(utm) {
		t.Error("1m² triangle at UTM coordinates reported degenerate")
	}
	wall := orb.Ring{{692827.5, 9326588.5}, {692830.5, 9326588.5}, {692830.5, 9326588.5}, {692827.5, 9326588.5}, {692827.5, 9326588.5}}
	if !Degenerate(wall) {
		t.Error("vertical wall projection not reported degenerate")
	}
}
