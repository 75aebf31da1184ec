package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"AirbnbCleaner/src/config"
	"AirbnbCleaner/src/datapush"
	"AirbnbCleaner/src/datasource/file"
	"AirbnbCleaner/src/metrics"
	"AirbnbCleaner/src/runner"
	"AirbnbCleaner/src/storage"
	"AirbnbCleaner/src/web"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName, cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	go handleSignals(ctx, cancel, sigChan, cfg.LogName, logger)

	r := runner.New(cfg, dcfg, logger, os.Stdout)
	if cfg.NotifyWebhook != "" {
		r.SetNotifier(datapush.NewDingTalk(cfg.NotifyWebhook, cfg.NotifySecret))
	}
	if err := serve(ctx, cfg, r, logger); err != nil {
		logger.Fatal("运行失败", zap.Error(err))
		logger.Close()
		os.Exit(1)
	}
}

// daemon 配置了定时、监控或诊断服务时常驻运行
func daemon(cfg *config.Config) bool {
	return cfg.Schedule != "" || cfg.Watch || cfg.HTTPAddr != ""
}

// serve 单次模式下清洗一次后返回；常驻模式下先清洗一次，然后按配置定时/监控/提供诊断服务直到 ctx 结束
func serve(ctx context.Context, cfg *config.Config, r *runner.Runner, logger *storage.Logger) error {
	if !daemon(cfg) {
		_, err := r.Run(ctx, runner.TriggerOnce)
		return err
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// 常驻模式下单次失败不退出，等待下一次触发
	if _, err := r.Run(ctx, runner.TriggerOnce); err != nil {
		logger.Warning("首次清洗失败，等待下一次触发", zap.Error(err))
	}

	// 设置定时任务
	c := cron.New()
	if cfg.Schedule != "" {
		err := c.AddFunc(cfg.Schedule, func() {
			if _, err := r.Run(ctx, runner.TriggerCron); err != nil {
				logger.Error("定时清洗失败", zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("创建定时任务失败(%s): %w", cfg.Schedule, err)
		}
		logger.Info("定时清洗已启动", zap.String("schedule", cfg.Schedule))
	}

	// 日志文件大小检查
	maxSize := config.EvalSize(cfg.LogMaxSize)
	if err := c.AddFunc("@every 1m", func() {
		if err := logger.CheckRotate(maxSize); err != nil {
			logger.Error("日志轮转失败", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if cfg.Watch {
		monitor, err := file.NewFileMonitor(time.Duration(cfg.Debounce), r.Inputs()...)
		if err != nil {
			return fmt.Errorf("创建文件监控失败: %w", err)
		}
		defer monitor.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("文件监控已启动", zap.Strings("files", r.Inputs()))
			err := monitor.Watch(ctx, func(changed []string) {
				logger.Info("输入文件已更新", zap.Strings("files", changed))
				if _, err := r.Run(ctx, runner.TriggerWatch); err != nil {
					logger.Error("监控清洗失败", zap.Error(err))
				}
			})
			if err != nil {
				errCh <- fmt.Errorf("文件监控: %w", err)
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		srv := web.NewServer(logger, r)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				errCh <- fmt.Errorf("诊断服务: %w", err)
			}
		}()
	}

	logger.Info("服务已启动，按Ctrl+C退出")
	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	stop()
	wg.Wait()
	return err
}

// handleSignals SIGINT/SIGTERM 结束运行，SIGHUP 重新打开日志文件(配合 logrotate)
func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, logName string, logger *storage.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if logName == "" {
					continue
				}
				if err := logger.Reopen(logName); err != nil {
					logger.Error("重新打开日志文件失败", zap.Error(err))
					continue
				}
				logger.Info("日志文件已重新打开", zap.String("file", logName))
				continue
			}
			logger.Info("Received signal: " + sig.String() + ", shutting down...")
			cancel()
			return
		}
	}
}
