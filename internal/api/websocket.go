// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Tighten for production deployments.
		return true
	},
}

// progressMessage is one stage update streamed during a chapter check.
type progressMessage struct {
	Type    string      `json:"type"` // progress, result, error
	Stage   string      `json:"stage,omitempty"`
	Percent int         `json:"percent,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// checkRequest is the initial client message opening a streamed check.
type checkRequest struct {
	ChapterIndex int    `json:"chapter_index"`
	Text         string `json:"text"`
}

// CheckChapterWS runs a chapter consistency check over a websocket,
// streaming stage progress before the final report. One check per
// connection; the socket closes when the result is sent.
func (h *Handler) CheckChapterWS(c *gin.Context) {
	logger := utils.GetLogger()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var req checkRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeWSMessage(conn, nil, progressMessage{Type: "error", Message: "invalid check request"})
		return
	}
	if req.Text == "" || req.ChapterIndex <= 0 {
		writeWSMessage(conn, nil, progressMessage{Type: "error", Message: "chapter_index and text are required"})
		return
	}

	// Serializes concurrent progress callbacks onto the single connection.
	var writeMu sync.Mutex

	progress := func(stage string, percent int) {
		writeWSMessage(conn, &writeMu, progressMessage{
			Type:    "progress",
			Stage:   stage,
			Percent: percent,
		})
	}

	report, err := h.Consistency.CheckChapter(c.Request.Context(), c.Param("id"), req.Text, req.ChapterIndex, progress)
	if err != nil {
		writeWSMessage(conn, &writeMu, progressMessage{Type: "error", Message: err.Error()})
		return
	}

	writeWSMessage(conn, &writeMu, progressMessage{Type: "result", Data: report})
}

func writeWSMessage(conn *websocket.Conn, mu *sync.Mutex, msg progressMessage) {
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		utils.GetLogger().Debug("websocket write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
