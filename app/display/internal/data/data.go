package data

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/signal_radar/app/display/internal/conf"
	"github.com/iWorld-y/signal_radar/app/signal_radar/pkg/storage"
)

type Data struct {
	store *storage.Storage
}

func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	store, err := storage.NewStorage(c.Database.DBConfig())
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		store.Close()
	}
	return &Data{store: store}, cleanup, nil
}

// Store 底层存储，供测试写入数据
func (d *Data) Store() *storage.Storage {
	return d.store
}
