package service

import (
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/signal_radar/app/display/internal/usecase"
)

type DisplayService struct {
	uc  *usecase.RadarUseCase
	log *log.Helper
}

func NewDisplayService(uc *usecase.RadarUseCase, logger log.Logger) *DisplayService {
	return &DisplayService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// RegisterRoutes 注册 /api 下的只读接口
func (s *DisplayService) RegisterRoutes(srv *http.Server) {
	r := srv.Route("/api")
	r.GET("/reports/latest", s.LatestReport)
	r.GET("/reports/{date}", s.GetReport)
	r.GET("/accounts", s.ListAccountRisks)
	r.GET("/accounts/{id}/timeline", s.GetAccountTimeline)
	r.GET("/companies", s.GetCompanies)
	r.GET("/companies/{name}", s.GetCompany)
	r.GET("/articles/{id}/signals", s.GetArticleSignals)
	r.GET("/status", s.GetStatus)
}

func (s *DisplayService) LatestReport(ctx http.Context) error {
	r, err := s.uc.LatestReport(ctx)
	if err != nil {
		return err
	}
	return ctx.Result(200, r)
}

func (s *DisplayService) GetReport(ctx http.Context) error {
	r, err := s.uc.ReportByDate(ctx, ctx.Vars().Get("date"))
	if err != nil {
		return err
	}
	return ctx.Result(200, r)
}

func (s *DisplayService) ListAccountRisks(ctx http.Context) error {
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	risks, err := s.uc.AccountRisks(ctx, limit)
	if err != nil {
		return err
	}
	return ctx.Result(200, risks)
}

func (s *DisplayService) GetAccountTimeline(ctx http.Context) error {
	id, err := strconv.ParseInt(ctx.Vars().Get("id"), 10, 64)
	if err != nil {
		return errors.BadRequest("INVALID_ACCOUNT", "account id must be an integer")
	}
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	tl, err := s.uc.AccountTimeline(ctx, id, limit)
	if err != nil {
		return err
	}
	return ctx.Result(200, tl)
}

func (s *DisplayService) GetCompanies(ctx http.Context) error {
	days, err := queryInt(ctx, "days")
	if err != nil {
		return err
	}
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	o, err := s.uc.CompanyOverview(ctx, days, limit)
	if err != nil {
		return err
	}
	return ctx.Result(200, o)
}

func (s *DisplayService) GetCompany(ctx http.Context) error {
	c, err := s.uc.Company(ctx, ctx.Vars().Get("name"))
	if err != nil {
		return err
	}
	return ctx.Result(200, c)
}

func (s *DisplayService) GetArticleSignals(ctx http.Context) error {
	id, err := strconv.ParseInt(ctx.Vars().Get("id"), 10, 64)
	if err != nil {
		return errors.BadRequest("INVALID_ARTICLE", "article id must be an integer")
	}
	a, err := s.uc.ArticleSignals(ctx, id)
	if err != nil {
		return err
	}
	return ctx.Result(200, a)
}

func (s *DisplayService) GetStatus(ctx http.Context) error {
	st, err := s.uc.Status(ctx)
	if err != nil {
		return err
	}
	return ctx.Result(200, st)
}

// queryInt 缺省为 0，由业务层补默认值
func queryInt(ctx http.Context, key string) (int, error) {
	v := ctx.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.BadRequest("INVALID_QUERY", key+" must be an integer")
	}
	return n, nil
}
