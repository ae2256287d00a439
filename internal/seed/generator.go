package seed

import (
	"crypto/rand"
	"math"
	"math/big"
	"slices"

	"github.com/google/uuid"

	"github.com/okian/eatery/internal/adapters/repository"
	"github.com/okian/eatery/internal/domain/model"
)

const (
	randomFloatDivisor = 1000000
	degPerRadian       = 180 / math.Pi
)

var (
	cuisines   = []string{"italian", "thai", "mexican", "japanese", "indian", "greek", "ethiopian", "korean"}
	adjectives = []string{"Blue", "Golden", "Little", "Corner", "Old", "Green", "Lucky", "Red"}
	nouns      = []string{"Kitchen", "Table", "Spoon", "Garden", "Bistro", "Oven", "Grill", "House"}
	firstNames = []string{"Ada", "Brook", "Cyrus", "Dana", "Emil", "Farah", "Gus", "Hana", "Ivo", "Juno"}
	lastNames  = []string{"Okafor", "Lindqvist", "Moreau", "Tanaka", "Silva", "Novak", "Quinn", "Rahman"}
)

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomIndex returns a random int in [0, n).
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func pick(values []string) string {
	return values[randomIndex(len(values))]
}

// offset moves (lng, lat) by meters along bearing (radians).
func offset(lng, lat, meters, bearing float64) (float64, float64) {
	d := meters / repository.EarthRadiusMeters
	dLat := d * math.Cos(bearing) * degPerRadian
	dLng := d * math.Sin(bearing) / math.Cos(lat/degPerRadian) * degPerRadian
	return lng + dLng, lat + dLat
}

// GenerateRestaurants scatters n restaurants within spread metres of the
// centre. Names carry a uuid fragment so repeated runs do not collide.
func GenerateRestaurants(cfg Config) []RestaurantInput {
	cfg = cfg.withDefaults()
	out := make([]RestaurantInput, cfg.Restaurants)
	for i := range out {
		// sqrt keeps the points uniform over the disc instead of bunching at the centre.
		dist := cfg.SpreadMeters * math.Sqrt(getRandomFloat())
		lng, lat := offset(cfg.CenterLng, cfg.CenterLat, dist, 2*math.Pi*getRandomFloat())
		out[i] = RestaurantInput{
			RestName: pick(adjectives) + " " + pick(nouns) + " " + uuid.NewString()[:8],
			Cuisine:  pick(cuisines),
			Long:     lng,
			Lat:      lat,
		}
	}
	return out
}

// GenerateUsers creates n users, each managing up to maxManaged of rests.
// A user always favours the cuisine of its first managed restaurant.
func GenerateUsers(cfg Config, rests []model.Restaurant) []UserInput {
	cfg = cfg.withDefaults()
	out := make([]UserInput, cfg.Users)
	for i := range out {
		u := UserInput{
			FullName:     FullName{FirstName: pick(firstNames), LastName: pick(lastNames)},
			FavCuisines:  []string{},
			ManagedRests: []string{},
		}
		seen := make(map[int]bool)
		for n := randomIndex(cfg.MaxManaged + 1); n > 0 && len(rests) > 0; n-- {
			j := randomIndex(len(rests))
			if seen[j] {
				continue
			}
			seen[j] = true
			u.ManagedRests = append(u.ManagedRests, rests[j].ID.Hex())
			if len(u.FavCuisines) == 0 {
				u.FavCuisines = append(u.FavCuisines, rests[j].Cuisine)
			}
		}
		if extra := pick(cuisines); !slices.Contains(u.FavCuisines, extra) {
			u.FavCuisines = append(u.FavCuisines, extra)
		}
		out[i] = u
	}
	return out
}
