// Package main 信号雷达只读查询服务
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/signal_radar/app/display/internal/conf"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	Name    = "radar-display"
	Version string

	confPath string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&confPath, "conf", "app/display/configs/config.yaml", "radar API config path, eg: -conf config.yaml")
}

// loadBootstrap 读取服务配置，数据库与批处理共用
func loadBootstrap(path string) (*conf.Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(path)))
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, err
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	if bc.Server == nil || bc.Data == nil || bc.Data.Database == nil {
		return nil, fmt.Errorf("%s: server and data.database are required", path)
	}
	return &bc, nil
}

func main() {
	flag.Parse()
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	helper := log.NewHelper(logger)

	bc, err := loadBootstrap(confPath)
	if err != nil {
		helper.Fatalf("load config: %v", err)
	}

	app, cleanup, err := initApp(bc.Server, bc.Data, logger)
	if err != nil {
		helper.Fatalf("init radar api: %v", err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		helper.Errorf("radar api stopped: %v", err)
	}
}
