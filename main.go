/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2026-10-15 00:40:12
 * @LastEditors: 安知鱼
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anzhiyu-c/anheyu-comment/cmd/server"
	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-comment/pkg/config"
)

// @title           Anheyu Comment API
// @version         1.0
// @description     Anheyu 评论子系统接口文档

// @contact.name   安知鱼
// @contact.url    https://github.com/anzhiyu-c/anheyu-comment

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 在请求头中添加 Bearer Token，格式为: Bearer {token}
func main() {
	var (
		configPath     string
		issueToken     string
		tokenTTL       time.Duration
		importArticles string
	)
	flag.StringVar(&configPath, "config", config.DefaultFilePath, "配置文件路径，不存在时自动生成默认配置")
	flag.StringVar(&issueToken, "issue-token", "", "为指定主体签发管理员令牌并退出")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "签发令牌的有效期")
	flag.StringVar(&importArticles, "import-articles", "", "从 JSON 文件导入文章 [{id,key,title}] 并退出")
	flag.Parse()

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if issueToken != "" {
		token, err := auth.GenerateToken(issueToken, true, tokenTTL, []byte(cfg.GetString(config.KeyJWTSecret)))
		if err != nil {
			log.Fatalf("签发令牌失败: %v", err)
		}
		fmt.Println(token)
		return
	}

	app, cleanup, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("应用初始化失败: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if importArticles != "" {
		n, err := app.ImportArticles(ctx, importArticles)
		if err != nil {
			log.Printf("文章导入失败（已导入 %d 篇）: %v", n, err)
			return
		}
		log.Printf("✅ 已导入 %d 篇文章", n)
		return
	}

	// 确保后台任务在程序退出时被停止
	defer app.Stop()

	app.PrintBanner()

	if err := app.Run(ctx); err != nil {
		log.Printf("应用运行失败: %v", err)
	}
}
