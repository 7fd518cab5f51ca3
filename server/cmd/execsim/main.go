package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"exec-sim/server/internal/analyzer"
	"exec-sim/server/internal/api"
	"exec-sim/server/internal/config"
	"exec-sim/server/internal/llm"
	"exec-sim/server/internal/orchestrator"
	"exec-sim/server/internal/session"
)

func main() {
	// 第一阶段以“本地可跑、可调试”为优先：配置文件路径用 flag，敏感信息（API Key）用环境变量。
	// - OPENAI_API_KEY / ANTHROPIC_API_KEY：生成式分析用，不配置时自动只走规则策略
	configPath := flag.String("config", "server/configs/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var client llm.Client
	if cfg.Analyzer.EnableLLM {
		client, err = llm.NewClient(cfg, cfg.Analyzer.LLMTimeout)
		if err != nil {
			log.Fatalf("init llm client: %v", err)
		}
	}

	az := analyzer.New(cfg.Analyzer, client)
	orch := orchestrator.New(az)
	store := session.NewInMemoryStore()

	server, err := api.NewServer(cfg, store, orch)
	if err != nil {
		log.Fatalf("init server: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("exec-sim server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
