package es

import (
	"context"
	"errors"
	log "log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/goccy/go-json"
)

type UserRepo interface {
	IndexUser(ctx context.Context, user *UserES) error
	DeleteUser(ctx context.Context, id string) error
	// SearchUsers 用户名包含 name 的用户 id, 已封禁用户除外
	SearchUsers(ctx context.Context, name string, size int) ([]string, error)
}

type UserRepoImpl struct {
	client *elasticsearch.TypedClient
	index  string
}

func NewUserRepo(client *elasticsearch.TypedClient, index string) UserRepo {
	return &UserRepoImpl{client: client, index: index}
}

func (s *UserRepoImpl) IndexUser(ctx context.Context, user *UserES) error {
	_, err := s.client.Index(s.index).
		Id(user.ID).
		Document(user).
		Do(ctx)
	return err
}

func (s *UserRepoImpl) DeleteUser(ctx context.Context, id string) error {
	_, err := s.client.Delete(s.index, id).Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) && e.Status == NotFoundCode {
			log.Warn("User already deleted or not found in ES", "id", id)
			return nil
		}
		return err
	}
	return nil
}

func (s *UserRepoImpl) SearchUsers(ctx context.Context, name string, size int) ([]string, error) {
	pattern := "*" + name + "*"
	caseInsensitive := true

	resp, err := s.client.Search().
		Index(s.index).
		Size(size).
		Query(&types.Query{
			Bool: &types.BoolQuery{
				Must: []types.Query{{
					Wildcard: map[string]types.WildcardQuery{
						"username": {Value: &pattern, CaseInsensitive: &caseInsensitive},
					},
				}},
				MustNot: []types.Query{{
					Term: map[string]types.TermQuery{"status": {Value: "blocked"}},
				}},
			},
		}).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var user UserES
		if err = json.Unmarshal(hit.Source_, &user); err != nil {
			continue
		}
		ids = append(ids, user.ID)
	}
	return ids, nil
}
