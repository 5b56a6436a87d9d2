package queries

import (
	"piiquante/domain/core/entities"
	"piiquante/pkg/errors"
	"piiquante/pkg/utils"
)

const listCacheKey = "sauces:all"

// SauceCacheKey is the cache key for one sauce view
func SauceCacheKey(id string) string {
	return "sauce:" + id
}

// ListCacheKey is the cache key for the full catalogue
func ListCacheKey() string {
	return listCacheKey
}

// GetSauceQuery represents a query to get a single sauce
type GetSauceQuery struct {
	SauceID string `validate:"required,uuid"`
}

// Validate validates the GetSauceQuery
func (q GetSauceQuery) Validate() error {
	if err := utils.ValidateStruct(q); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// CacheKey implements bus.Cacheable
func (q GetSauceQuery) CacheKey() string {
	return SauceCacheKey(q.SauceID)
}

// ListSaucesQuery represents a query for every sauce
type ListSaucesQuery struct{}

// Validate validates the ListSaucesQuery
func (q ListSaucesQuery) Validate() error {
	return nil
}

// CacheKey implements bus.Cacheable
func (q ListSaucesQuery) CacheKey() string {
	return listCacheKey
}

// SauceView is the read model of a sauce as clients see it
type SauceView struct {
	ID            string   `json:"_id"`
	UserID        string   `json:"userId"`
	Name          string   `json:"name"`
	Manufacturer  string   `json:"manufacturer"`
	Description   string   `json:"description"`
	MainPepper    string   `json:"mainPepper"`
	ImageURL      string   `json:"imageUrl"`
	Heat          int      `json:"heat"`
	Likes         int      `json:"likes"`
	Dislikes      int      `json:"dislikes"`
	UsersLiked    []string `json:"usersLiked"`
	UsersDisliked []string `json:"usersDisliked"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

// NewSauceView builds the read model from the aggregate
func NewSauceView(s *entities.Sauce) SauceView {
	details := s.Details()
	tally := s.Tally()
	return SauceView{
		ID:            s.ID().String(),
		UserID:        s.OwnerID(),
		Name:          details.Name,
		Manufacturer:  details.Manufacturer,
		Description:   details.Description,
		MainPepper:    details.MainPepper,
		ImageURL:      s.ImageRef().URL(),
		Heat:          details.Heat,
		Likes:         tally.Likes(),
		Dislikes:      tally.Dislikes(),
		UsersLiked:    tally.UsersLiked.Members(),
		UsersDisliked: tally.UsersDisliked.Members(),
		CreatedAt:     utils.FormatTimestamp(s.CreatedAt()),
		UpdatedAt:     utils.FormatTimestamp(s.UpdatedAt()),
	}
}
