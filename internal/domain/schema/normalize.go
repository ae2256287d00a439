package schema

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/domain/model"
	"github.com/okian/eatery/internal/domain/slug"
)

// Normalizer applies the lowercase/trim setters of the schemas. It never
// rewrites anything else; markup is rejected by the validator instead.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Text trims and lowercases s.
func (n *Normalizer) Text(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Restaurant normalises name and cuisine and re-derives uniqueName.
func (n *Normalizer) Restaurant(r *model.Restaurant) {
	r.RestName = n.Text(r.RestName)
	r.Cuisine = n.Text(r.Cuisine)
	r.UniqueName = slug.Make(r.RestName)
	if r.Location != nil && r.Location.Type == "" {
		r.Location.Type = model.PointType
	}
}

// RestaurantPatch normalises the supplied fields. A new restName always
// carries a new uniqueName; uniqueName is never taken from the caller.
func (n *Normalizer) RestaurantPatch(p *model.RestaurantPatch) {
	p.UniqueName = nil
	if p.RestName != nil {
		name := n.Text(*p.RestName)
		s := slug.Make(name)
		p.RestName, p.UniqueName = &name, &s
	}
	if p.Cuisine != nil {
		c := n.Text(*p.Cuisine)
		p.Cuisine = &c
	}
}

// FullName normalises both name parts.
func (n *Normalizer) FullName(f *model.FullName) {
	f.FirstName = n.Text(f.FirstName)
	f.LastName = n.Text(f.LastName)
}

// Cuisines normalises every entry and never returns nil.
func (n *Normalizer) Cuisines(in []string) []string {
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = n.Text(c)
	}
	return out
}

// User normalises names and cuisines and removes duplicate references.
func (n *Normalizer) User(u *model.User) {
	n.FullName(&u.FullName)
	u.FavCuisines = n.Cuisines(u.FavCuisines)
	u.ManagedRests = UniqueIDs(u.ManagedRests)
}

// UniqueIDs drops repeated ids, keeping first occurrences in order. It never
// returns nil.
func UniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
