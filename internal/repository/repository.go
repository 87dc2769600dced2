package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/docstore"
)

// ErrConcurrentModification 表示重试一次后写入仍然冲突，
// 需要调用方（编辑界面）提示用户刷新后重试，而不是静默覆盖
var ErrConcurrentModification = errors.New("文档已被其他人修改")

// Repository 把远端的三个 JSON 文档（覆盖表、队伍历史、报警配置）
// 映射为领域对象，所有修改都遵循 读取-携带 token 写入 的纪律
type Repository struct {
	cfg   *config.Config
	store docstore.Store
}

func NewRepository(cfg *config.Config, store docstore.Store) *Repository {
	return &Repository{
		cfg:   cfg,
		store: store,
	}
}

// mutate 执行一轮 读取-修改-写入，冲突时重新读取并重放一次修改，
// 第二次仍冲突则返回 ErrConcurrentModification
func (r *Repository) mutate(ctx context.Context, name string, apply func(content []byte) ([]byte, error)) error {
	write := func() error {
		token := ""
		var content []byte

		doc, err := r.store.Read(ctx, name)
		switch {
		case err == nil:
			token = doc.Token
			content = doc.Content
		case errors.Is(err, docstore.ErrNotFound):
			// 首次写入走创建路径
		default:
			return err
		}

		next, err := apply(content)
		if err != nil {
			return err
		}

		_, err = r.store.Write(ctx, name, next, token)
		return err
	}

	err := write()
	if errors.Is(err, docstore.ErrConflict) {
		slog.Warn("文档写入冲突，重新读取后重试", "document", name)
		err = write()
	}
	if errors.Is(err, docstore.ErrConflict) {
		return ErrConcurrentModification
	}

	return err
}
