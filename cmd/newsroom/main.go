package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Options 是全局选项和子命令。
type Options struct {
	Config string `short:"c" long:"config" env:"NEWSROOM_CONFIG" default:"configs/newsroom.yaml" description:"配置文件路径，文件不存在时只使用环境变量"`

	Serve    ServeCommand    `command:"serve" description:"启动 HTTP 服务"`
	Generate GenerateCommand `command:"generate" description:"收集订阅源并生成一份报告"`
	Feeds    FeedsCommand    `command:"feeds" description:"管理订阅源"`
}

var opts Options

func main() {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "读取 .env 失败: %v\n", err)
	}

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
