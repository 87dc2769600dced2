package alarm

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// Marker 用 redis 记录"今天已经发过"的标记，收窄跨 tick 的重复发送窗口。
// redis 不可用时退化为纯粹的 at-least-once，调用方只记日志不中断投递。
type Marker struct {
	redisClient *redis.Client
}

func NewMarker(redisClient *redis.Client) *Marker {
	return &Marker{redisClient: redisClient}
}

func markerKey(date string, m Match) string {
	// 渠道和收件人也参与哈希，只差渠道或收件人的两条规则不能互相去重
	sum := sha256.Sum256([]byte(m.Section + "|" + m.Time + "|" + m.Message + "|" + m.Channel + "|" + m.To))
	return fmt.Sprintf("alarm_fired_%s_%x", date, sum[:8])
}

// AlreadyFired 原子地检查并设置标记，返回 true 表示这条报警今天已经发过。
// 标记的 TTL 到当天结束为止
func (m *Marker) AlreadyFired(ctx context.Context, now time.Time, match Match) (bool, error) {
	key := markerKey(domain.DateKey(now), match)

	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	ttl := endOfDay.Sub(now)
	if ttl <= 0 {
		ttl = time.Minute
	}

	set, err := m.redisClient.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return !set, nil
}
