package geo

import (
	"math"

	"delivery-dispatch/internal/models"
)

// earthRadiusKm — радиус Земли для формулы гаверсинусов
const earthRadiusKm = 6371.0

// Point представляет точку с географическими координатами
type Point struct {
	Lat float64
	Lng float64
}

// NewPoint создает точку из опциональных координат.
// Возвращает nil, если координаты отсутствуют или выходят за допустимые
// диапазоны: некорректные значения трактуются как неизвестное местоположение.
func NewPoint(lat, lng *float64) *Point {
	if lat == nil || lng == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 || *lng < -180 || *lng > 180 {
		return nil
	}
	return &Point{Lat: *lat, Lng: *lng}
}

// Distance вычисляет расстояние между точками в километрах по формуле гаверсинусов
func Distance(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// FilterNearby отбирает курьеров в пределах radiusKm от ресторана.
// Курьер с неизвестным местоположением включается всегда: фильтр, которому
// не хватает данных, не должен молча исключать потенциально доступного
// курьера. Если неизвестно местоположение самого ресторана, фильтрация
// пропускается и возвращается весь список.
func FilterNearby(restaurant *Point, couriers []*models.Courier, radiusKm float64) []*models.Courier {
	if restaurant == nil {
		return couriers
	}

	nearby := make([]*models.Courier, 0, len(couriers))
	for _, c := range couriers {
		loc := NewPoint(c.CurrentLat, c.CurrentLng)
		if loc == nil {
			nearby = append(nearby, c)
			continue
		}
		if Distance(*restaurant, *loc) <= radiusKm {
			nearby = append(nearby, c)
		}
	}
	return nearby
}
