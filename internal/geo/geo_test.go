package geo

import (
	"testing"

	"delivery-dispatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func courierAt(lat, lng *float64) *models.Courier {
	return &models.Courier{IsOnline: true, CurrentLat: lat, CurrentLng: lng}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Point
		want  float64
		delta float64
	}{
		{
			name:  "same point",
			a:     Point{Lat: -12.0464, Lng: -77.0428},
			b:     Point{Lat: -12.0464, Lng: -77.0428},
			want:  0,
			delta: 0.001,
		},
		{
			name:  "moscow to saint petersburg",
			a:     Point{Lat: 55.7558, Lng: 37.6173},
			b:     Point{Lat: 59.9343, Lng: 30.3351},
			want:  634,
			delta: 5,
		},
		{
			name:  "one degree of latitude",
			a:     Point{Lat: 0, Lng: 0},
			b:     Point{Lat: 1, Lng: 0},
			want:  111.19,
			delta: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.a, tt.b), tt.delta)
		})
	}
}

func TestNewPoint(t *testing.T) {
	require.Nil(t, NewPoint(nil, nil))
	require.Nil(t, NewPoint(ptr(10), nil))
	require.Nil(t, NewPoint(nil, ptr(10)))

	// Координаты вне диапазона трактуются как неизвестные
	require.Nil(t, NewPoint(ptr(91), ptr(0)))
	require.Nil(t, NewPoint(ptr(-91), ptr(0)))
	require.Nil(t, NewPoint(ptr(0), ptr(181)))
	require.Nil(t, NewPoint(ptr(0), ptr(-181)))

	p := NewPoint(ptr(-12.0464), ptr(-77.0428))
	require.NotNil(t, p)
	assert.Equal(t, -12.0464, p.Lat)
	assert.Equal(t, -77.0428, p.Lng)
}

func TestFilterNearbyByRadius(t *testing.T) {
	restaurant := &Point{Lat: -12.0464, Lng: -77.0428}

	// Смещения по широте: ~2 км, ~8 км и ~15 км от ресторана
	near := courierAt(ptr(-12.0464+2.0/111.19), ptr(-77.0428))
	mid := courierAt(ptr(-12.0464+8.0/111.19), ptr(-77.0428))
	far := courierAt(ptr(-12.0464+15.0/111.19), ptr(-77.0428))

	got := FilterNearby(restaurant, []*models.Courier{near, mid, far}, 10)
	require.Len(t, got, 2)
	assert.Contains(t, got, near)
	assert.Contains(t, got, mid)
	assert.NotContains(t, got, far)
}

func TestFilterNearbyDistanceMonotonic(t *testing.T) {
	restaurant := &Point{Lat: 0, Lng: 0}

	// Если ближний курьер отсекается радиусом, дальний не может пройти
	for _, radius := range []float64{1, 5, 10, 50} {
		var prevIncluded = true
		for _, distKm := range []float64{0.5, 3, 7, 20, 100} {
			c := courierAt(ptr(distKm/111.19), ptr(0.0))
			included := len(FilterNearby(restaurant, []*models.Courier{c}, radius)) == 1
			if included && !prevIncluded {
				t.Fatalf("courier at %.1f km included while nearer courier excluded (radius %.1f)", distKm, radius)
			}
			prevIncluded = included
		}
	}
}

func TestFilterNearbyFailOpen(t *testing.T) {
	restaurant := &Point{Lat: -12.0464, Lng: -77.0428}

	noLocation := courierAt(nil, nil)
	badCoords := courierAt(ptr(200), ptr(300))

	// Курьер без координат включается при любом радиусе
	for _, radius := range []float64{0.1, 1, 10} {
		got := FilterNearby(restaurant, []*models.Courier{noLocation, badCoords}, radius)
		assert.Len(t, got, 2)
	}
}

func TestFilterNearbyUnknownRestaurant(t *testing.T) {
	couriers := []*models.Courier{
		courierAt(ptr(10.0), ptr(10.0)),
		courierAt(nil, nil),
		courierAt(ptr(-80.0), ptr(170.0)),
	}

	// Без координат ресторана фильтрация пропускается целиком
	got := FilterNearby(nil, couriers, 10)
	assert.Equal(t, couriers, got)
}
