package main

import (
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/signal_radar/app/display/internal/conf"
	"github.com/iWorld-y/signal_radar/app/display/internal/data"
	"github.com/iWorld-y/signal_radar/app/display/internal/server"
	"github.com/iWorld-y/signal_radar/app/display/internal/service"
	"github.com/iWorld-y/signal_radar/app/display/internal/usecase"
)

// initApp 组装 data -> usecase -> service -> server
func initApp(confServer *conf.Server, confData *conf.Data, logger log.Logger) (*kratos.App, func(), error) {
	dataData, cleanup, err := data.NewData(confData, logger)
	if err != nil {
		return nil, nil, err
	}
	radarRepo := data.NewRadarRepo(dataData, logger)
	radarUseCase := usecase.NewRadarUseCase(radarRepo, logger)
	displayService := service.NewDisplayService(radarUseCase, logger)
	httpServer := server.NewHTTPServer(confServer, displayService, logger)
	app := newApp(logger, httpServer)
	return app, cleanup, nil
}

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}
