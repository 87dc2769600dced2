package repository

import (
	"context"
	"strconv"
	"testing"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/docstore"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 是内存版的文档存储，conflictNext 用来模拟并发写入者抢先提交
type memStore struct {
	docs         map[string]string
	versions     map[string]int
	conflictNext int
	writes       int
}

func newMemStore() *memStore {
	return &memStore{
		docs:     make(map[string]string),
		versions: make(map[string]int),
	}
}

func (s *memStore) Read(_ context.Context, name string) (*docstore.Document, error) {
	content, ok := s.docs[name]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Document{
		Content: []byte(content),
		Token:   strconv.Itoa(s.versions[name]),
	}, nil
}

func (s *memStore) Write(_ context.Context, name string, content []byte, token string) (string, error) {
	s.writes++
	if s.conflictNext > 0 {
		s.conflictNext--
		s.versions[name]++ // 模拟其他写入者改变了版本
		return "", docstore.ErrConflict
	}

	_, exists := s.docs[name]
	if !exists {
		if token != "" {
			return "", docstore.ErrNotFound
		}
	} else if token != strconv.Itoa(s.versions[name]) {
		return "", docstore.ErrConflict
	}

	s.docs[name] = string(content)
	s.versions[name]++
	return strconv.Itoa(s.versions[name]), nil
}

func testRepository(store docstore.Store) *Repository {
	cfg := &config.Config{}
	cfg.GitHub.SchedulePath = "shift_schedule.json"
	cfg.GitHub.TeamSettingsPath = "team_settings.json"
	cfg.GitHub.AlarmPath = "alarm_schedule.json"
	cfg.Schedule.DefaultTeam = "A"
	return NewRepository(cfg, store)
}

func TestSetOverrideCreatesAndMerges(t *testing.T) {
	store := newMemStore()
	repo := testRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.SetOverride(ctx, "2024-05-01", domain.ShiftOff))
	require.NoError(t, repo.SetOverride(ctx, "2024-05-02", domain.ShiftFull))

	overrides, err := repo.GetOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftOff, overrides["2024-05-01"])
	assert.Equal(t, domain.ShiftFull, overrides["2024-05-02"])

	// 文档里存的是韩文单字代码
	assert.Contains(t, store.docs["shift_schedule.json"], `"비"`)
	assert.Contains(t, store.docs["shift_schedule.json"], `"올"`)
}

func TestSetOverrideRetriesOnceOnConflict(t *testing.T) {
	store := newMemStore()
	repo := testRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.SetOverride(ctx, "2024-05-01", domain.ShiftDay))

	store.conflictNext = 1
	require.NoError(t, repo.SetOverride(ctx, "2024-05-02", domain.ShiftNight))

	overrides, err := repo.GetOverrides(ctx)
	require.NoError(t, err)
	// 重试后两条覆盖都在
	assert.Len(t, overrides, 2)
}

func TestSetOverrideSurfacesRepeatedConflict(t *testing.T) {
	store := newMemStore()
	repo := testRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.SetOverride(ctx, "2024-05-01", domain.ShiftDay))

	store.conflictNext = 2
	err := repo.SetOverride(ctx, "2024-05-02", domain.ShiftNight)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestDeleteOverride(t *testing.T) {
	store := newMemStore()
	repo := testRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.SetOverride(ctx, "2024-05-01", domain.ShiftDay))
	require.NoError(t, repo.DeleteOverride(ctx, "2024-05-01"))

	overrides, err := repo.GetOverrides(ctx)
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestGetOverridesMalformedDocument(t *testing.T) {
	store := newMemStore()
	store.docs["shift_schedule.json"] = `{invalid json`
	store.versions["shift_schedule.json"] = 1
	repo := testRepository(store)

	overrides, err := repo.GetOverrides(context.Background())
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestGetTeamHistoryDefaults(t *testing.T) {
	store := newMemStore()
	repo := testRepository(store)

	history, err := repo.GetTeamHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2000-01-03", history[0].StartDate)
	assert.Equal(t, "A", history[0].Team)
}

func TestGetTeamHistoryLegacyDocument(t *testing.T) {
	store := newMemStore()
	store.docs["team_settings.json"] = `{"team":"C"}`
	store.versions["team_settings.json"] = 1
	repo := testRepository(store)

	history, err := repo.GetTeamHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "C", history[0].Team)
}

func TestAddTeamRecordAppends(t *testing.T) {
	store := newMemStore()
	store.docs["team_settings.json"] = `{"team_history":[{"start_date":"2000-01-03","team":"A"}]}`
	store.versions["team_settings.json"] = 1
	repo := testRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.AddTeamRecord(ctx, domain.TeamRecord{StartDate: "2024-06-01", Team: "B"}))

	history, err := repo.GetTeamHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "B", history[1].Team)
}

func TestReplaceTeamHistory(t *testing.T) {
	store := newMemStore()
	repo := testRepository(store)
	ctx := context.Background()

	records := []domain.TeamRecord{
		{StartDate: "2000-01-03", Team: "A"},
		{StartDate: "2024-01-01", Team: "D"},
	}
	require.NoError(t, repo.ReplaceTeamHistory(ctx, records))

	history, err := repo.GetTeamHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, history)
}

func TestGetAlarmScheduleLegacyNightKey(t *testing.T) {
	store := newMemStore()
	store.docs["alarm_schedule.json"] = `{"weekday":[],"night":[{"time":"20:30","message":"夜班出门"}],"custom":[]}`
	store.versions["alarm_schedule.json"] = 1
	repo := testRepository(store)

	sched, err := repo.GetAlarmSchedule(context.Background())
	require.NoError(t, err)
	require.Len(t, sched.NightToday, 1)
	assert.Equal(t, "20:30", sched.NightToday[0].Time)
	assert.Empty(t, sched.LegacyNight)
}

func TestAddAndDeleteAlarmRules(t *testing.T) {
	store := newMemStore()
	repo := testRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.AddTimedRule(ctx, SectionWeekday, domain.TimedRule{Time: "07:00", Message: "上班"}))
	require.NoError(t, repo.AddTimedRule(ctx, SectionNightNext, domain.TimedRule{Time: "08:30", Message: "下夜班"}))
	require.NoError(t, repo.AddDatedRule(ctx, domain.DatedRule{Date: "2024-12-25", Time: "09:00", Message: "体检"}))

	sched, err := repo.GetAlarmSchedule(ctx)
	require.NoError(t, err)
	assert.Len(t, sched.Weekday, 1)
	assert.Len(t, sched.NightNext, 1)
	assert.Len(t, sched.Custom, 1)

	require.NoError(t, repo.DeleteAlarmRule(ctx, SectionWeekday, 0))

	sched, err = repo.GetAlarmSchedule(ctx)
	require.NoError(t, err)
	assert.Empty(t, sched.Weekday)

	// 越界与非法分区是可识别的输入错误，调用方要能用 errors.Is 分辨
	assert.ErrorIs(t, repo.DeleteAlarmRule(ctx, SectionCustom, 5), ErrRuleIndexOutOfRange)
	assert.ErrorIs(t, repo.DeleteAlarmRule(ctx, SectionWeekday, -1), ErrRuleIndexOutOfRange)
	assert.ErrorIs(t, repo.DeleteAlarmRule(ctx, "invalid", 0), ErrUnknownSection)
	assert.ErrorIs(t, repo.AddTimedRule(ctx, "invalid", domain.TimedRule{Time: "07:00"}), ErrUnknownSection)
}
