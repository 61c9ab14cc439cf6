package service

import (
	"context"
	"strings"

	"github.com/pubshare/internal/baas"
)

// statsPageSize 统计时每页读取的出版物数量
const statsPageSize = 200

// UserService wraps profile reads and updates.
type UserService struct {
	client baas.Client
}

// NewUserService creates a UserService instance.
func NewUserService(client baas.Client) *UserService {
	return &UserService{client: client}
}

// ProfileInput holds the editable profile fields. Avatar is optional.
type ProfileInput struct {
	Name           string
	Bio            string
	Institution    string
	Department     string
	Company        string
	Position       string
	Website        string
	OrcidID        string
	ResearcherType string
	IsScientific   bool
	Avatar         *baas.File
}

func (in ProfileInput) form() *baas.Form {
	form := baas.NewForm().
		Set("name", strings.TrimSpace(in.Name)).
		Set("bio", strings.TrimSpace(in.Bio)).
		Set("institution", strings.TrimSpace(in.Institution)).
		Set("department", strings.TrimSpace(in.Department)).
		Set("company", strings.TrimSpace(in.Company)).
		Set("position", strings.TrimSpace(in.Position)).
		Set("website", strings.TrimSpace(in.Website)).
		Set("orcid_id", strings.TrimSpace(in.OrcidID)).
		Set("researcher_type", strings.TrimSpace(in.ResearcherType)).
		Set("is_scientific", in.IsScientific)
	if in.Avatar != nil && len(in.Avatar.Data) > 0 {
		form.AddFile("avatar", *in.Avatar)
	}
	return form
}

// ProfileStats sums the counters of a user's publications.
type ProfileStats struct {
	Publications int `json:"publications"`
	Views        int `json:"views"`
	Downloads    int `json:"downloads"`
	Citations    int `json:"citations"`
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*User, error) {
	rec, err := s.client.Get(ctx, CollectionUsers, id, baas.GetOptions{})
	if err != nil {
		return nil, err
	}
	return decodeUser(s.client, rec), nil
}

// UpdateProfile patches the profile of id.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*User, error) {
	rec, err := s.client.Update(ctx, CollectionUsers, id, in.form())
	if err != nil {
		return nil, err
	}
	return decodeUser(s.client, rec), nil
}

// Stats walks every page of the user's visible publications.
func (s *UserService) Stats(ctx context.Context, userID string) (ProfileStats, error) {
	var stats ProfileStats
	filter := baas.Filter("user = {:user}", baas.Params{"user": userID})
	for page := 1; ; page++ {
		res, err := s.client.List(ctx, CollectionPublications, page, statsPageSize, baas.ListOptions{Filter: filter})
		if err != nil {
			return ProfileStats{}, err
		}
		for _, rec := range res.Items {
			stats.Publications++
			stats.Views += rec.GetInt("views_count")
			stats.Downloads += rec.GetInt("downloads_count")
			stats.Citations += rec.GetInt("citations_count")
		}
		if len(res.Items) == 0 || page >= res.TotalPages {
			return stats, nil
		}
	}
}
