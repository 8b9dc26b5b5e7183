package exposure

import (
	"testing"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func pt(lon, lat float64) orb.Point { return orb.Point{lon, lat} }

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		inside bool
		tier   domain.Threshold
		want   domain.WindSource
	}{
		{"eyewall wins over tier", true, domain.Threshold64, domain.WindSourcePlateau},
		{"64kt", false, domain.Threshold64, domain.WindSourceDecayTo64},
		{"50kt", false, domain.Threshold50, domain.WindSourceDecayTo50},
		{"34kt", false, domain.Threshold34, domain.WindSourceDecayTo34},
		{"no tier", false, 0, domain.WindSourceDecayEnvelope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.inside, tt.tier))
		})
	}
}

func TestWindFor(t *testing.T) {
	tests := []struct {
		name                    string
		source                  domain.WindSource
		center, dist, rmw, edge float64
		want                    float64
	}{
		{"plateau", domain.WindSourcePlateau, 120, 10, 20, 60, 120},
		{"halfway to 64", domain.WindSourceDecayTo64, 120, 40, 20, 60, 92},
		{"halfway to 50", domain.WindSourceDecayTo50, 120, 40, 20, 60, 85},
		{"halfway to 34", domain.WindSourceDecayTo34, 100, 40, 20, 60, 67},
		{"past edge clamps", domain.WindSourceDecayTo50, 120, 90, 20, 60, 50},
		{"zero span keeps center", domain.WindSourceDecayTo64, 120, 40, 60, 50, 120},
		{"weak storm envelope decay rises to 64", domain.WindSourceDecayEnvelope, 50, 40, 20, 60, 57},
		{"weak storm tier decay floors", domain.WindSourceDecayTo64, 50, 40, 20, 60, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, windFor(tt.source, tt.center, tt.dist, tt.rmw, tt.edge), 1e-9)
		})
	}
}

func TestEstimateRMW(t *testing.T) {
	assert.InDelta(t, 20, estimateRMW(96), 0)
	assert.InDelta(t, 30, estimateRMW(95.9), 0)
	assert.InDelta(t, 30, estimateRMW(64), 0)
	assert.InDelta(t, 40, estimateRMW(63), 0)
}

func TestRadiiTier(t *testing.T) {
	center := pt(-90, 25)
	set := WindRadiiSet{
		R64: domain.Radii{30, 30, 30, 30},
		R50: domain.Radii{50, 50, 50, 0},
		R34: domain.Radii{90, 90, 90, 90},
	}
	ne := pt(-89.9, 25.1)
	assert.Equal(t, domain.Threshold64, radiiTier(ne, center, 20, set))
	assert.Equal(t, domain.Threshold34, radiiTier(ne, center, 40, set), "incomplete 50kt radii are ignored")
	assert.Equal(t, domain.Threshold(0), radiiTier(ne, center, 100, set))
}

func TestIsClose(t *testing.T) {
	assert.True(t, isClose(20, 20.000001, 1e-6))
	assert.False(t, isClose(20, 20.001, 1e-6))
	assert.True(t, isClose(0, 0, 1e-6))
}

func TestRadiusOfMaxWind(t *testing.T) {
	fixAt := func(lat float64, rmw *float64) domain.Observation {
		return domain.Observation{Lat: lat, Lon: -90, RMW: rmw}
	}

	t.Run("skips nearer fixes without RMW", func(t *testing.T) {
		obs := []domain.Observation{
			fixAt(25, nil),
			fixAt(26, nil),
			fixAt(27, domain.Float(10)),
			fixAt(28, domain.Float(10)),
		}
		rmw, estimated := radiusOfMaxWind(pt(-90, 25), obs, 120)
		assert.False(t, estimated)
		assert.InDelta(t, 10, rmw, 1e-9)
	})

	t.Run("weights the two reporting fixes", func(t *testing.T) {
		obs := []domain.Observation{
			fixAt(25, domain.Float(10)),
			fixAt(26, nil),
			fixAt(27, domain.Float(30)),
		}
		rmw, estimated := radiusOfMaxWind(pt(-90, 25.5), obs, 120)
		assert.False(t, estimated)
		// 0.5° to the first fix, 1.5° to the second.
		assert.InDelta(t, 15, rmw, 0.05)
	})

	t.Run("estimates when no fix reports RMW", func(t *testing.T) {
		rmw, estimated := radiusOfMaxWind(pt(-90, 25), []domain.Observation{fixAt(25, nil), fixAt(26, nil)}, 120)
		assert.True(t, estimated)
		assert.InDelta(t, 20, rmw, 0)
	})
}
