package es

import (
	"Chatter/internal/api/config"
	"Chatter/internal/pkg/logger"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

const (
	NotFoundCode = 404
	ConflictCode = 409
)

// InitClient 初始化 Elasticsearch 客户端并确保用户索引存在, 未配置地址时返回 nil
func InitClient(cfg config.ElasticConfig) (*elasticsearch.TypedClient, error) {
	if cfg.Address == "" {
		log.Warn("Elasticsearch not configured, user search falls back to MongoDB")
		return nil, nil
	}

	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: []string{cfg.Address},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &logger.ESTransport{
			Transport: http.DefaultTransport,
		},
	})
	if err != nil {
		log.Error("Cannot Connect to Elasticsearch", "err", err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info, err := client.Info().Do(ctx)
	if err != nil {
		log.Error("Cannot Connect to Elasticsearch", "err", err)
		return nil, err
	}

	if err = ensureUserIndex(ctx, client, cfg.UserIndex); err != nil {
		return nil, err
	}

	log.Info("Connected to Elasticsearch", "version", info.Version.Int)
	return client, nil
}

func ensureUserIndex(ctx context.Context, client *elasticsearch.TypedClient, index string) error {
	exists, err := client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = client.Indices.Create(index).
		Mappings(&types.TypeMapping{
			Properties: map[string]types.Property{
				"id":         types.NewKeywordProperty(),
				"username":   types.NewKeywordProperty(),
				"avatar":     types.NewKeywordProperty(),
				"status":     types.NewKeywordProperty(),
				"created_at": types.NewDateProperty(),
			},
		}).
		Do(ctx)
	if err != nil {
		return err
	}
	log.Info("已创建用户索引", "index", index)
	return nil
}
