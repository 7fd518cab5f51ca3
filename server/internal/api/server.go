package api

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"exec-sim/server/internal/assessment"
	"exec-sim/server/internal/config"
	"exec-sim/server/internal/domain"
	"exec-sim/server/internal/memory"
	"exec-sim/server/internal/model"
	"exec-sim/server/internal/orchestrator"
	"exec-sim/server/internal/session"
	"exec-sim/server/internal/timeline"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Server struct {
	config       *config.Config
	store        session.Store
	catalog      *domain.Catalog
	now          func() time.Time
	orchestrator *orchestrator.Orchestrator
	timeline     timeline.Store

	// 同一会话的轮次必须串行：记忆累积与阶段推断依赖到达顺序。
	// 不同会话之间无共享状态，可以完全并行。
	sessionLocks   map[string]*sync.Mutex
	sessionLocksMu sync.Mutex

	// WebSocket upgrader
	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, store session.Store, orch *orchestrator.Orchestrator) (*Server, error) {
	scenarios, err := domain.LoadScenarios(cfg.Paths.Scenarios)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:       cfg,
		store:        store,
		catalog:      domain.NewCatalog(scenarios),
		now:          time.Now,
		orchestrator: orch,
		timeline:     timeline.NewInMemoryStore(),
		sessionLocks: make(map[string]*sync.Mutex),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 开发期允许本地跨域，生产环境应改为白名单
				origin := r.Header.Get("Origin")
				return origin == "http://localhost:5173" || origin == "http://127.0.0.1:5173"
			},
		},
	}, nil
}

func (s *Server) Routes() http.Handler {
	// Gin 统一承载中间件与路由，便于扩展日志/鉴权/限流等能力。
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), s.corsMiddleware())
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/api/scenarios", s.handleScenarios)
	engine.POST("/api/sessions", s.handleCreateSession)
	engine.POST("/api/sessions/:id/messages", s.handleMessage)
	engine.GET("/api/sessions/:id/insights", s.handleInsights)
	engine.POST("/api/sessions/:id/insights/query", s.handleInsightQuery)
	engine.GET("/api/sessions/:id/insights/search", s.handleInsightSearch)
	engine.POST("/api/sessions/:id/assessment", s.handleAssessment)
	engine.GET("/api/sessions/:id/transcript", s.handleTranscript)
	engine.GET("/api/sessions/:id/chat", s.handleChat)
	return engine
}

// handleHealthz 返回服务健康状态。
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleScenarios 返回全部可用的训练场景。
func (s *Server) handleScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.All())
}

type createSessionRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type createSessionResponse struct {
	SessionID string                    `json:"session_id"`
	State     *model.SessionState       `json:"state"`
	Opening   model.CounterpartResponse `json:"opening"`
}

// handleCreateSession 从场景预设创建会话，对手先说开场白。
func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if req.ScenarioID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scenario_id required"})
		return
	}

	scenario, ok := s.catalog.ByID(req.ScenarioID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "scenario_id not found"})
		return
	}

	state := scenario.NewSessionState(newSessionID())
	opening := s.orchestrator.OpeningLine(state)
	state.Turns = append(state.Turns, model.Turn{
		Speaker: model.SpeakerCounterpart,
		Text:    opening.Content,
		TS:      s.now(),
	})

	rec := &session.Record{
		State:     state,
		CreatedAt: s.now(),
	}
	if err := s.store.Save(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save session failed"})
		return
	}

	s.appendTranscript(c, state.SessionID,
		model.TranscriptEvent{Type: "session_created", Content: scenario.ID},
		model.TranscriptEvent{Type: "counterpart_response", Speaker: model.SpeakerCounterpart, Content: opening.Content},
	)

	c.JSON(http.StatusOK, createSessionResponse{
		SessionID: state.SessionID,
		State:     state,
		Opening:   opening,
	})
}

type messageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	Response model.CounterpartResponse   `json:"response"`
	Analysis model.MessageAnalysis       `json:"analysis"`
	Insights *model.ConversationInsights `json:"insights"`
}

// handleMessage 处理一轮用户消息：编排器管线 + 轮次落库。
func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	sessionID := c.Param("id")
	resp, err := s.processMessage(c, sessionID, req.Content)
	if err != nil {
		s.writeProcessError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// processMessage 是 HTTP 与 WebSocket 共用的单轮处理：取锁、跑管线、落库。
func (s *Server) processMessage(c *gin.Context, sessionID, content string) (*messageResponse, error) {
	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.Get(c.Request.Context(), sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.ProcessTurn(c.Request.Context(), content, rec.State, rec.Insights)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec.State.Turns = append(rec.State.Turns,
		model.Turn{Speaker: model.SpeakerUser, Text: content, TS: now},
		model.Turn{Speaker: model.SpeakerCounterpart, Text: result.Response.Content, TS: now},
	)
	rec.Insights = result.UpdatedInsights
	rec.Analyses = append(rec.Analyses, result.Analysis)

	if err := s.store.Save(c.Request.Context(), rec); err != nil {
		return nil, err
	}

	// transcript 的 EventID 以轮次序号命名，WebSocket 重发同一轮时幂等
	turnNo := len(rec.State.Turns) / 2
	s.appendTranscript(c, sessionID,
		model.TranscriptEvent{Type: "user_message", EventID: fmt.Sprintf("turn-%d-user", turnNo), Speaker: model.SpeakerUser, Content: content},
		model.TranscriptEvent{Type: "counterpart_response", EventID: fmt.Sprintf("turn-%d-counterpart", turnNo), Speaker: model.SpeakerCounterpart, Content: result.Response.Content},
	)

	return &messageResponse{
		Response: result.Response,
		Analysis: result.Analysis,
		Insights: result.UpdatedInsights,
	}, nil
}

func (s *Server) writeProcessError(c *gin.Context, err error) {
	switch err {
	case session.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case orchestrator.ErrEmptyMessage:
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content is required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "handle message failed"})
	}
}

// handleInsights 返回会话的累积记忆。
func (s *Server) handleInsights(c *gin.Context) {
	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeProcessError(c, err)
		return
	}
	if rec.Insights == nil {
		c.JSON(http.StatusOK, gin.H{"insights": nil, "summary": "Conversación iniciada"})
		return
	}
	c.JSON(http.StatusOK, rec.Insights)
}

type insightQueryRequest struct {
	Question string `json:"question"`
}

// handleInsightQuery 判断一个问题能否用累积记忆直接回答。
func (s *Server) handleInsightQuery(c *gin.Context) {
	var req insightQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeProcessError(c, err)
		return
	}

	c.JSON(http.StatusOK, memory.CanAnswerFromMemory(req.Question, rec.Insights))
}

// handleInsightSearch 在累积记忆里做逐词检索。
func (s *Server) handleInsightSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}

	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeProcessError(c, err)
		return
	}

	c.JSON(http.StatusOK, memory.Search(rec.Insights, query))
}

// handleAssessment 生成会话的表现评估报告。
func (s *Server) handleAssessment(c *gin.Context) {
	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeProcessError(c, err)
		return
	}

	duration := s.now().Sub(rec.CreatedAt)
	c.JSON(http.StatusOK, assessment.Analyze(rec.State.Turns, duration))
}

// handleTranscript 返回会话的 transcript 事件列表（按 seq 顺序）。
func (s *Server) handleTranscript(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := s.store.Get(c.Request.Context(), sessionID); err != nil {
		s.writeProcessError(c, err)
		return
	}

	events, err := s.timeline.List(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transcript failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// appendTranscript 把事件写入 transcript。写入失败只记日志，不影响对话主流程。
func (s *Server) appendTranscript(c *gin.Context, sessionID string, events ...model.TranscriptEvent) {
	for i := range events {
		events[i].TS = s.now()
		if _, err := s.timeline.Append(c.Request.Context(), sessionID, &events[i]); err != nil {
			log.Printf("⚠️ append transcript event failed: session=%s type=%s err=%v", sessionID, events[i].Type, err)
		}
	}
}

// chat 帧格式：双向 JSON。
type chatInbound struct {
	Type    string `json:"type"` // "user_message"
	Content string `json:"content"`
}

type chatOutbound struct {
	Type     string                      `json:"type"` // "counterpart_response" / "error"
	Response *model.CounterpartResponse  `json:"response,omitempty"`
	Analysis *model.MessageAnalysis      `json:"analysis,omitempty"`
	Insights *model.ConversationInsights `json:"insights,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

// handleChat 处理 WebSocket 对话连接：每个入站帧走一遍单轮管线。
func (s *Server) handleChat(c *gin.Context) {
	sessionID := c.Param("id")

	// 升级前先验证会话存在
	if _, err := s.store.Get(c.Request.Context(), sessionID); err != nil {
		s.writeProcessError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[API] failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("[API] chat connected: session=%s client=%s", sessionID, c.Request.RemoteAddr)

	for {
		var in chatInbound
		if err := conn.ReadJSON(&in); err != nil {
			log.Printf("[API] chat closed: session=%s err=%v", sessionID, err)
			return
		}
		if in.Type != "user_message" {
			_ = conn.WriteJSON(chatOutbound{Type: "error", Error: "unsupported message type"})
			continue
		}

		resp, err := s.processMessage(c, sessionID, in.Content)
		if err != nil {
			_ = conn.WriteJSON(chatOutbound{Type: "error", Error: err.Error()})
			continue
		}

		out := chatOutbound{
			Type:     "counterpart_response",
			Response: &resp.Response,
			Analysis: &resp.Analysis,
			Insights: resp.Insights,
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Printf("[API] chat write failed: session=%s err=%v", sessionID, err)
			return
		}
	}
}

func (s *Server) lockFor(sessionID string) *sync.Mutex {
	s.sessionLocksMu.Lock()
	defer s.sessionLocksMu.Unlock()

	lock, ok := s.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessionLocks[sessionID] = lock
	}
	return lock
}

func newSessionID() string {
	now := time.Now().UnixNano()
	return fmt.Sprintf("S_%d", now)
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		// 开发期：允许本地 Vite；线上应改为白名单或同源。
		if origin == "http://localhost:5173" || origin == "http://127.0.0.1:5173" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
