package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"AirbnbCleaner/src/metrics"
	"AirbnbCleaner/src/runner"
	"AirbnbCleaner/src/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIResponse 统一响应结构
type APIResponse struct {
	Status int         `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LastRun   string    `json:"last_run,omitempty"`
}

// Server 诊断服务：实时日志、指标、最近一次清洗的预览
type Server struct {
	log    *storage.Logger
	runner *runner.Runner
}

func NewServer(log *storage.Logger, r *runner.Runner) *Server {
	return &Server{log: log, runner: r}
}

// Router 注册路由
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.health)
	r.Get("/logs", s.logs)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/preview", s.previews)
	r.Get("/preview/{table}", s.preview)
	r.Post("/run", s.run)
	return r
}

// ListenAndServe 阻塞直到 ctx 结束，结束时优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("诊断服务已启动", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Timestamp: time.Now()}
	if last := s.runner.Last(); last != nil {
		resp.LastRun = last.RunID
	}
	render.JSON(w, r, resp)
}

// logs 以 chunked 方式持续输出日志，直到客户端断开
func (s *Server) logs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	logChan, cancel := s.log.Subscribe()
	defer cancel()

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			// 写入失败说明客户端已断开
			if _, err := fmt.Fprintln(w, msg); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) previews(w http.ResponseWriter, r *http.Request) {
	last := s.runner.Last()
	if last == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, APIResponse{Status: http.StatusNotFound, Msg: "还没有成功的清洗"})
		return
	}
	render.JSON(w, r, APIResponse{Msg: "查询成功", Data: NewRunPreview(last)})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	last := s.runner.Last()
	if last == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, APIResponse{Status: http.StatusNotFound, Msg: "还没有成功的清洗"})
		return
	}

	for _, tr := range []*runner.TableResult{last.Train, last.Test} {
		if tr != nil && tr.Name == name {
			render.JSON(w, r, APIResponse{Msg: "查询成功", Data: NewTablePreview(tr)})
			return
		}
	}
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, APIResponse{Status: http.StatusNotFound, Msg: fmt.Sprintf("表 %s 不存在", name)})
}

// run 手动触发一次清洗
func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.Run(r.Context(), runner.TriggerHTTP)
	switch {
	case errors.Is(err, runner.ErrBusy):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, APIResponse{Status: http.StatusConflict, Msg: err.Error()})
	case err != nil:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{Status: http.StatusInternalServerError, Msg: err.Error()})
	default:
		render.JSON(w, r, APIResponse{Msg: "清洗完成", Data: NewRunPreview(res)})
	}
}
