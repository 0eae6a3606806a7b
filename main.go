/*
 * @Description: 文档编辑服务入口
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-17 11:02:13
 * @LastEditors: 安知鱼
 */
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/anzhiyu-c/anheyu-docs/cmd/server"
)

// @title           Anheyu Docs API
// @version         1.0
// @description     在线文档编辑服务接口文档

// @contact.name   安知鱼
// @contact.url    https://github.com/anzhiyu-c/anheyu-docs

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8092
// @BasePath  /api
func main() {
	app, cleanup, err := server.NewApp()
	if err != nil {
		log.Fatalf("应用初始化失败: %v", err)
	}
	defer cleanup()

	app.PrintBanner()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			app.Stop()
			cleanup()
			log.Fatalf("应用运行失败: %v", err)
		}
	case sig := <-quit:
		log.Printf("收到信号 %s，正在关闭服务...", sig)
	}
	app.Stop()
}
