package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
)

// Client 查询韩国公共数据门户的法定节假日 API，
// 结果按年份缓存在 redis 中（默认 24 小时）。
// 节假日只用于解析结果的标注，不参与报警判定
type Client struct {
	cfg         *config.Config
	client      *http.Client
	redisClient *redis.Client
	baseURL     string
}

func NewClient(cfg *config.Config, redisClient *redis.Client) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.Holiday.RequestTimeout) * time.Second,
		},
		redisClient: redisClient,
		baseURL:     "http://apis.data.go.kr/B090041/openapi/service/SpcdeInfoService/getRestDeInfo",
	}
}

// NewClientWithBaseURL 供测试时指向本地的模拟服务器
func NewClientWithBaseURL(cfg *config.Config, redisClient *redis.Client, baseURL string) *Client {
	c := NewClient(cfg, redisClient)
	c.baseURL = baseURL
	return c
}

// items.item 在只有一条记录时是对象而不是数组，需要两种形式都能解析
type holidayItem struct {
	LocDate  json.Number `json:"locdate"`
	DateName string      `json:"dateName"`
}

type holidayResponse struct {
	Response struct {
		Body struct {
			Items struct {
				Item json.RawMessage `json:"item"`
			} `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

// Holidays 返回某一年的节假日，键为 YYYY-MM-DD，值为节假日名称列表
func (c *Client) Holidays(ctx context.Context, year int) (map[string][]string, error) {
	if c.cfg.Holiday.APIKey == "" {
		return map[string][]string{}, nil
	}

	cacheKey := fmt.Sprintf("holidays_%d", year)
	if c.redisClient != nil {
		if cached, err := c.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			out := map[string][]string{}
			if err := json.Unmarshal([]byte(cached), &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := c.fetch(ctx, year)
	if err != nil {
		return nil, err
	}

	if c.redisClient != nil {
		encoded, err := json.Marshal(out)
		if err == nil {
			ttl := time.Duration(c.cfg.Redis.HolidayExpiration) * time.Second
			if err := c.redisClient.Set(ctx, cacheKey, encoded, ttl).Err(); err != nil {
				slog.Warn("节假日缓存写入失败", "year", year, "error", err)
			}
		}
	}

	return out, nil
}

func (c *Client) fetch(ctx context.Context, year int) (map[string][]string, error) {
	query := url.Values{}
	query.Set("ServiceKey", c.cfg.Holiday.APIKey)
	query.Set("solYear", fmt.Sprintf("%d", year))
	query.Set("numOfRows", "100")
	query.Set("_type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("节假日 API 返回 %d", resp.StatusCode)
	}

	parsed := holidayResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	items, err := decodeItems(parsed.Response.Body.Items.Item)
	if err != nil {
		return nil, err
	}

	out := map[string][]string{}
	for _, item := range items {
		loc := item.LocDate.String()
		if len(loc) != 8 {
			continue
		}
		dateStr := fmt.Sprintf("%s-%s-%s", loc[:4], loc[4:6], loc[6:8])
		out[dateStr] = append(out[dateStr], item.DateName)
	}

	return out, nil
}

func decodeItems(raw json.RawMessage) ([]holidayItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	items := make([]holidayItem, 0)
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}

	single := holidayItem{}
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []holidayItem{single}, nil
}
