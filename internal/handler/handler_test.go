package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/docstore"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/holiday"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/repository"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/schedule"
	"github.com/stretchr/testify/require"
)

// memStore 是测试用的内存文档存储，token 为递增的版本号。
// conflictWrites 大于零时接下来的写入会报版本冲突，模拟并发写入者
type memStore struct {
	docs           map[string][]byte
	versions       map[string]int
	conflictWrites int
}

func newMemStore() *memStore {
	return &memStore{
		docs:     make(map[string][]byte),
		versions: make(map[string]int),
	}
}

func (s *memStore) Read(ctx context.Context, name string) (*docstore.Document, error) {
	content, ok := s.docs[name]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Document{
		Content: content,
		Token:   fmt.Sprintf("%d", s.versions[name]),
	}, nil
}

func (s *memStore) Write(ctx context.Context, name string, content []byte, token string) (string, error) {
	if s.conflictWrites > 0 {
		s.conflictWrites--
		return "", docstore.ErrConflict
	}

	_, exists := s.docs[name]
	if exists && token != fmt.Sprintf("%d", s.versions[name]) {
		return "", docstore.ErrConflict
	}
	if !exists && token != "" {
		return "", docstore.ErrNotFound
	}
	s.docs[name] = content
	s.versions[name]++
	return fmt.Sprintf("%d", s.versions[name]), nil
}

func newTestHandler(t *testing.T) (*Handler, *memStore) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Environment = "development"
	cfg.Schedule.Timezone = "Asia/Seoul"
	cfg.Schedule.DefaultTeam = "A"
	cfg.GitHub.SchedulePath = "shift_schedule.json"
	cfg.GitHub.TeamSettingsPath = "team_settings.json"
	cfg.GitHub.AlarmPath = "alarm_schedule.json"
	cfg.Auth.Password = "correct-password"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.JWTExpiration = 3600

	store := newMemStore()
	repo := repository.NewRepository(cfg, store)
	resolver := schedule.NewResolver(domain.DefaultPatterns(), cfg.Schedule.DefaultTeam)
	// 没有 API key 时节假日客户端直接返回空表，不发请求
	holidays := holiday.NewClient(cfg, nil)

	h, err := NewHandler(cfg, repo, resolver, holidays, nil)
	require.NoError(t, err)
	h.RegisterRoutes()

	return h, store
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, h *Handler, method, path string, body any, cookies ...*http.Cookie) testResponse {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	resp := testResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func login(t *testing.T, h *Handler) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{"password":"correct-password"}`)))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == authCookieName {
			return cookie
		}
	}
	t.Fatal("登录响应中没有令牌 cookie")
	return nil
}

func TestGetDaySchedule(t *testing.T) {
	h, _ := newTestHandler(t)

	// 基准日当天 A 队为白班
	resp := doRequest(t, h, http.MethodGet, "/schedule/days/2000-01-03", nil)
	require.True(t, resp.Success)

	day := struct {
		Date       string `json:"date"`
		Shift      string `json:"shift"`
		Overridden bool   `json:"overridden"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &day))
	require.Equal(t, "2000-01-03", day.Date)
	require.Equal(t, "DAY", day.Shift)
	require.False(t, day.Overridden)

	resp = doRequest(t, h, http.MethodGet, "/schedule/days/not-a-date", nil)
	require.False(t, resp.Success)
}

func TestGetMonthSchedule(t *testing.T) {
	h, _ := newTestHandler(t)

	resp := doRequest(t, h, http.MethodGet, "/schedule/2000/1", nil)
	require.True(t, resp.Success)

	month := struct {
		Year  int    `json:"year"`
		Month int    `json:"month"`
		Team  string `json:"team"`
		Days  []struct {
			Date  string `json:"date"`
			Shift string `json:"shift"`
		} `json:"days"`
		Workdays struct {
			Total int `json:"total"`
		} `json:"workdays"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &month))
	require.Equal(t, 2000, month.Year)
	require.Equal(t, "A", month.Team)
	require.Len(t, month.Days, 31)
	// A 队每四天上两天班，一月里一定有工作日
	require.Greater(t, month.Workdays.Total, 0)

	resp = doRequest(t, h, http.MethodGet, "/schedule/2000/13", nil)
	require.False(t, resp.Success)
}

func TestOverrideRequiresLogin(t *testing.T) {
	h, _ := newTestHandler(t)

	resp := doRequest(t, h, http.MethodPost, "/schedule/overrides", map[string]string{
		"date":  "2000-01-05",
		"shift": "FULL",
	})
	require.False(t, resp.Success)
	require.Equal(t, "用户未登录", resp.Message)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h, _ := newTestHandler(t)

	resp := doRequest(t, h, http.MethodPost, "/auth/login", map[string]string{
		"password": "wrong-password",
	})
	require.False(t, resp.Success)
	require.Equal(t, "口令错误", resp.Message)
}

func TestSetAndDeleteOverride(t *testing.T) {
	h, _ := newTestHandler(t)
	cookie := login(t, h)

	// 2000-01-05 按模式是休息日，覆盖成全班
	resp := doRequest(t, h, http.MethodPost, "/schedule/overrides", map[string]string{
		"date":  "2000-01-05",
		"shift": "FULL",
	}, cookie)
	require.True(t, resp.Success)

	resp = doRequest(t, h, http.MethodGet, "/schedule/days/2000-01-05", nil)
	require.True(t, resp.Success)

	day := struct {
		Shift      string `json:"shift"`
		Overridden bool   `json:"overridden"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &day))
	require.Equal(t, "FULL", day.Shift)
	require.True(t, day.Overridden)

	// 删除覆盖后回到模式计算的结果
	resp = doRequest(t, h, http.MethodDelete, "/schedule/overrides/2000-01-05", nil, cookie)
	require.True(t, resp.Success)

	resp = doRequest(t, h, http.MethodGet, "/schedule/days/2000-01-05", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &day))
	require.Equal(t, "OFF", day.Shift)
	require.False(t, day.Overridden)
}

func TestSetOverrideRejectsInvalidShift(t *testing.T) {
	h, _ := newTestHandler(t)
	cookie := login(t, h)

	resp := doRequest(t, h, http.MethodPost, "/schedule/overrides", map[string]string{
		"date":  "2000-01-05",
		"shift": "HOLIDAY",
	}, cookie)
	require.False(t, resp.Success)
	require.Contains(t, resp.Message, "无效的班次代码")
}

func TestTeamHistoryEndpoints(t *testing.T) {
	h, _ := newTestHandler(t)
	cookie := login(t, h)

	// 空存储时退回单条默认记录
	resp := doRequest(t, h, http.MethodGet, "/team-history/", nil)
	require.True(t, resp.Success)

	var history []domain.TeamRecord
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history, 1)
	require.Equal(t, "A", history[0].Team)

	resp = doRequest(t, h, http.MethodPost, "/team-history/", map[string]string{
		"start_date": "2000-02-01",
		"team":       "C",
	}, cookie)
	require.True(t, resp.Success)

	resp = doRequest(t, h, http.MethodGet, "/team-history/", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history, 2)
	require.Equal(t, "C", history[1].Team)

	// 换队后的日期按新队伍的模式解析
	resp = doRequest(t, h, http.MethodGet, "/schedule/days/2000-02-01", nil)
	day := struct {
		Shift string `json:"shift"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &day))
	// 2000-02-01 距基准日 29 天，29 mod 4 = 1，C 队第 2 格是休息
	require.Equal(t, "OFF", day.Shift)
}

func TestAlarmEndpoints(t *testing.T) {
	h, _ := newTestHandler(t)
	cookie := login(t, h)

	resp := doRequest(t, h, http.MethodPost, "/alarms/timed/weekday", map[string]string{
		"time":    "08:30",
		"message": "출근 준비",
	}, cookie)
	require.True(t, resp.Success)

	resp = doRequest(t, h, http.MethodPost, "/alarms/timed/weekday", map[string]string{
		"time":    "25:99",
		"message": "broken",
	}, cookie)
	require.False(t, resp.Success)
	require.Equal(t, "无效的时间，应为 HH:MM", resp.Message)

	resp = doRequest(t, h, http.MethodPost, "/alarms/timed/bogus", map[string]string{
		"time":    "08:30",
		"message": "x",
	}, cookie)
	require.False(t, resp.Success)

	resp = doRequest(t, h, http.MethodPost, "/alarms/custom", map[string]string{
		"date":    "2000-03-01",
		"time":    "21:00",
		"message": "특별 점검",
	}, cookie)
	require.True(t, resp.Success)

	resp = doRequest(t, h, http.MethodGet, "/alarms/", nil, cookie)
	require.True(t, resp.Success)

	sched := domain.AlarmSchedule{}
	require.NoError(t, json.Unmarshal(resp.Data, &sched))
	require.Len(t, sched.Weekday, 1)
	require.Len(t, sched.Custom, 1)

	resp = doRequest(t, h, http.MethodDelete, "/alarms/weekday/0", nil, cookie)
	require.True(t, resp.Success)

	resp = doRequest(t, h, http.MethodGet, "/alarms/", nil, cookie)
	require.NoError(t, json.Unmarshal(resp.Data, &sched))
	require.Empty(t, sched.Weekday)
}

func TestSetOverrideSurfacesWriteConflict(t *testing.T) {
	h, store := newTestHandler(t)
	cookie := login(t, h)

	// 连续两次冲突耗尽 mutate 的一次重试，错误要以提示而不是 500 的形式到达用户
	store.conflictWrites = 2

	resp := doRequest(t, h, http.MethodPost, "/schedule/overrides", map[string]string{
		"date":  "2000-01-05",
		"shift": "FULL",
	}, cookie)
	require.False(t, resp.Success)
	require.Equal(t, "其他人刚刚修改了这份数据，请刷新后重试", resp.Message)

	// 只冲突一次时重试成功，用户无感知
	store.conflictWrites = 1
	resp = doRequest(t, h, http.MethodPost, "/schedule/overrides", map[string]string{
		"date":  "2000-01-05",
		"shift": "FULL",
	}, cookie)
	require.True(t, resp.Success)
}

func TestDeleteAlarmRuleValidationMessages(t *testing.T) {
	h, _ := newTestHandler(t)
	cookie := login(t, h)

	// 越界下标和非法分区都是输入问题，必须给校验提示而不是服务器错误
	resp := doRequest(t, h, http.MethodDelete, "/alarms/weekday/5", nil, cookie)
	require.False(t, resp.Success)
	require.Contains(t, resp.Message, "报警规则下标越界")

	resp = doRequest(t, h, http.MethodDelete, "/alarms/bogus/0", nil, cookie)
	require.False(t, resp.Success)
	require.Contains(t, resp.Message, "无效的报警分区")
}
