package service

import (
	"Murmur/internal/api/config"
	"Murmur/internal/api/dto"
	"Murmur/internal/pkg/consts"
	"Murmur/internal/pkg/redis"
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// GifService Giphy 搜索代理，API Key 不下发到客户端
type GifService interface {
	Search(ctx context.Context, req *dto.GifSearchReq) ([]*dto.GifDTO, error)
}

type gifServiceImpl struct {
	httpClient *resty.Client
}

func NewGifService() GifService {
	client := resty.New().
		SetBaseURL(config.Cfg.Giphy.BaseURL).
		SetTimeout(10 * time.Second)

	return &gifServiceImpl{httpClient: client}
}

// giphy 原始响应，只取需要的字段
type giphySearchResp struct {
	Data []struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Images struct {
			Original struct {
				URL string `json:"url"`
			} `json:"original"`
			FixedWidthSmall struct {
				URL string `json:"url"`
			} `json:"fixed_width_small"`
		} `json:"images"`
	} `json:"data"`
}

func (s *gifServiceImpl) Search(ctx context.Context, req *dto.GifSearchReq) ([]*dto.GifDTO, error) {
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 25
	}

	cacheKey := fmt.Sprintf("%s%s:%d:%d", consts.GifSearchKey, req.Keyword, req.Limit, req.Offset)
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		var res []*dto.GifDTO
		if err := json.Unmarshal([]byte(cached), &res); err == nil {
			return res, nil
		}
	}

	var raw giphySearchResp
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key": config.Cfg.Giphy.ApiKey,
			"q":       req.Keyword,
			"limit":   strconv.Itoa(req.Limit),
			"offset":  strconv.Itoa(req.Offset),
			"rating":  "pg-13",
		}).
		SetResult(&raw).
		Get("/v1/gifs/search")
	if err != nil {
		log.ErrorContext(ctx, "Giphy 请求失败", "keyword", req.Keyword, "err", err)
		return nil, UnExpectedError
	}
	if resp.IsError() {
		log.ErrorContext(ctx, "Giphy 响应异常", "status", resp.StatusCode(), "body", resp.String())
		return nil, UnExpectedError
	}

	res := make([]*dto.GifDTO, 0, len(raw.Data))
	for _, g := range raw.Data {
		res = append(res, &dto.GifDTO{
			ID:         g.ID,
			Title:      g.Title,
			URL:        g.Images.Original.URL,
			PreviewURL: g.Images.FixedWidthSmall.URL,
		})
	}

	if jsonStr, err := json.Marshal(res); err == nil {
		_ = redis.SetWithExpiration(ctx, cacheKey, string(jsonStr), time.Minute*10)
	}
	return res, nil
}
