package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iabetor/newsroom/internal/api"
	"github.com/iabetor/newsroom/internal/logger"
)

// ServeCommand 启动 HTTP 服务直到收到信号。
type ServeCommand struct {
	Addr string `long:"addr" description:"监听地址，覆盖配置文件"`
}

func (c *ServeCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, opts.Config, true)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	if a.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Infof("[main] newsroom 启动中 (store=%s, provider=%s)", a.cfg.Store.Backend, a.cfg.LLM.Provider)
	engine := api.NewServer(a.svc, a.cfg.Server.AdminPassword)
	timeout := time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
	if err := api.Serve(ctx, addr, engine, timeout); err != nil {
		return fmt.Errorf("HTTP 服务出错: %w", err)
	}
	logger.Infof("[main] newsroom 已停止")
	return nil
}

// GenerateCommand 同步执行一次分析并把报告打印到标准输出。
type GenerateCommand struct{}

func (c *GenerateCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, opts.Config, true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.Run(ctx)
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "跳过订阅源 %s: %v\n", f.Source, f.Err)
	}
	fmt.Fprintf(os.Stderr, "%s 报告已归档 (status=%s, items=%d)\n", res.Key, res.Status, res.Items)
	fmt.Println(res.Report)
	return nil
}

// FeedsCommand 管理订阅源列表。
type FeedsCommand struct {
	List   FeedsListCommand   `command:"list" description:"列出订阅源"`
	Add    FeedsAddCommand    `command:"add" description:"添加订阅源"`
	Remove FeedsRemoveCommand `command:"remove" description:"删除订阅源"`
}

type FeedsListCommand struct{}

func (c *FeedsListCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := bootstrap(ctx, opts.Config, false)
	if err != nil {
		return err
	}
	defer a.Close()

	feeds, err := a.svc.Feeds(ctx)
	if err != nil {
		return err
	}
	for _, f := range feeds {
		fmt.Println(f)
	}
	return nil
}

type FeedsAddCommand struct {
	NoValidate bool `long:"no-validate" description:"不抓取校验直接添加"`
	Args       struct {
		URL string `positional-arg-name:"url"`
	} `positional-args:"yes" required:"yes"`
}

func (c *FeedsAddCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := bootstrap(ctx, opts.Config, false)
	if err != nil {
		return err
	}
	defer a.Close()

	title, err := a.svc.AddFeed(ctx, c.Args.URL, !c.NoValidate)
	if err != nil {
		return err
	}
	if title != "" {
		fmt.Printf("已添加: %s (%s)\n", c.Args.URL, title)
	} else {
		fmt.Printf("已添加: %s\n", c.Args.URL)
	}
	return nil
}

type FeedsRemoveCommand struct {
	Args struct {
		URL string `positional-arg-name:"url"`
	} `positional-args:"yes" required:"yes"`
}

func (c *FeedsRemoveCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := bootstrap(ctx, opts.Config, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.RemoveFeed(ctx, c.Args.URL); err != nil {
		return err
	}
	fmt.Printf("已删除: %s\n", c.Args.URL)
	return nil
}
