package publisher

import (
	"context"

	"ipfeed/internal/shared/errors"
	"ipfeed/internal/shared/logger"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// Store 接口定义了发布目标的存储行为。
// version 是文件当前内容的版本令牌（git blob SHA），更新时必须携带，避免覆盖并发修改。
type Store interface {
	// Get 返回 path 的版本令牌；文件不存在时 found 为 false 且 err 为 nil。
	Get(ctx context.Context, path string) (version string, found bool, err error)
	Create(ctx context.Context, path, content, message string) (version string, err error)
	Update(ctx context.Context, path, content, message, version string) (newVersion string, err error)
	Name() string
}

// Result 描述一次成功的发布。
type Result struct {
	Action          string
	Path            string
	PreviousVersion string
	Version         string
}

// Publisher 以整文件替换的方式发布内容：存在则更新，不存在则创建。
type Publisher struct {
	store   Store
	message string
}

func New(store Store, message string) *Publisher {
	return &Publisher{store: store, message: message}
}

// Publish 不做重试，任何存储失败都以 KindUpload 错误返回。
func (p *Publisher) Publish(ctx context.Context, path, content string) (*Result, error) {
	l := logger.WithComponent("IPFeed/Publisher")

	version, found, err := p.store.Get(ctx, path)
	if err != nil {
		return nil, errors.New(errors.KindUpload, "failed to read current version").AtSource(path).Base(err)
	}

	if !found {
		l.Info().Str("store", p.store.Name()).Str("path", path).Msg("File not found, creating.")
		newVersion, err := p.store.Create(ctx, path, content, p.message)
		if err != nil {
			return nil, errors.New(errors.KindUpload, "create rejected").AtSource(path).Base(err)
		}
		return &Result{Action: ActionCreated, Path: path, Version: newVersion}, nil
	}

	l.Info().Str("store", p.store.Name()).Str("path", path).Str("version", version).Msg("File exists, updating.")
	newVersion, err := p.store.Update(ctx, path, content, p.message, version)
	if err != nil {
		return nil, errors.New(errors.KindUpload, "update rejected").AtSource(path).Base(err)
	}
	return &Result{Action: ActionUpdated, Path: path, PreviousVersion: version, Version: newVersion}, nil
}
