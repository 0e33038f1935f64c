package websocket

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
)

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub       *Hub
	jwtSecret []byte
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, jwtSecret []byte) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// HandleWebSocket handles WebSocket upgrade requests.
// Authentication is done via JWT token in query param (?token=...) or the
// Authorization header. The connection is bound to the token's identity;
// clients cannot pick a user ID.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.WarnWithFields("WebSocket auth failed", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": err.Error(),
		})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checking handled by the CORS layer
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.WarnWithFields("WebSocket upgrade failed", err)
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username, user.CollegeName)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to Campus Confessions!",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"college":     user.CollegeName,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump() // blocks until client disconnects
}

// authenticateRequest extracts and validates the JWT token from the request
func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	tokenString := ""

	if token := c.Query("token"); token != "" {
		tokenString = token
	}

	if auth := c.GetHeader("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		} else {
			tokenString = auth
		}
	}

	if tokenString == "" {
		return nil, errors.New("no authentication token provided")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("token missing expiration")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid user_id in token")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if user.IsBlocked {
		return nil, errors.New("account is blocked")
	}

	return &user, nil
}

// HandleMetrics returns WebSocket metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	metrics := h.hub.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"websocket":    metrics,
		"online_users": h.hub.GetOnlineUsers(),
		"timestamp":    time.Now().UTC(),
	})
}

// HandleOnlineStatus checks if specific users are online
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses := make(map[string]bool)
	for _, userID := range req.UserIDs {
		statuses[userID] = h.hub.IsUserOnline(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}
