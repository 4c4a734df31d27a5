package handler

import (
	"net/http"
	"strconv"
	"time"

	"community_chat/internal/pkg"
	"community_chat/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	communities *service.CommunityService
	chat        *service.ChatService
	members     *service.MemberService
	activity    *service.ActivityService
	log         *pkg.Logger
}

type ChatMessageReq struct {
	Message string `json:"message"`
}

func NewChatHandler(communities *service.CommunityService, chat *service.ChatService, members *service.MemberService, activity *service.ActivityService, log *pkg.Logger) *ChatHandler {
	return &ChatHandler{
		communities: communities,
		chat:        chat,
		members:     members,
		activity:    activity,
		log:         log.With("handler", "ChatHandler"),
	}
}

// requireMember 读接口的成员校验，store 本身不做
func (h *ChatHandler) requireMember(c *gin.Context, communityID, userID uint64) bool {
	ok, err := h.members.IsMember(c.Request.Context(), communityID, userID)
	if err != nil {
		writeError(c, h.log, err)
		return false
	}
	if !ok {
		// 社区不存在时报 404 而不是 403
		if err := h.communities.CheckExists(c.Request.Context(), communityID); err != nil {
			writeError(c, h.log, err)
			return false
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "only community members can view chat"})
		return false
	}
	return true
}

// messageInCommunity 消息必须属于路径上的社区
func (h *ChatHandler) messageInCommunity(c *gin.Context, communityID, messageID uint64) bool {
	owner, err := h.chat.CommunityOf(c.Request.Context(), messageID)
	if err != nil {
		writeError(c, h.log, err)
		return false
	}
	if owner != communityID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"msg": "message not found"})
		return false
	}
	return true
}

// List 向前翻页：before 为毫秒时间戳，before_id 可选
func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	communityID, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	cur := service.Cursor{Limit: limit}
	if raw := c.Query("before"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			badRequest(c, "invalid before")
			return
		}
		cur.Before = time.UnixMilli(ms).UTC()
	}
	if raw := c.Query("before_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid before_id")
			return
		}
		cur.BeforeID = id
	}
	if cur.BeforeID > 0 && cur.Before.IsZero() {
		badRequest(c, "before_id requires before")
		return
	}

	if !h.requireMember(c, communityID, userID) {
		return
	}
	page, err := h.chat.List(c.Request.Context(), communityID, cur)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	resp := gin.H{"messages": page.Messages, "has_more": page.HasMore}
	if len(page.Messages) > 0 {
		resp["next_before"] = page.NextBefore.UnixMilli()
		resp["next_before_id"] = page.NextBeforeID
	} else {
		resp["next_before"] = nil
		resp["next_before_id"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	communityID, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	var req ChatMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	msg, err := h.chat.Send(c.Request.Context(), communityID, userID, req.Message)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "message sent", "chat_message": msg})
}

func (h *ChatHandler) Edit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	communityID, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	messageID, ok := pathID(c, "messageId", "message")
	if !ok {
		return
	}
	var req ChatMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if !h.messageInCommunity(c, communityID, messageID) {
		return
	}
	msg, err := h.chat.Edit(c.Request.Context(), messageID, userID, req.Message)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "message updated", "chat_message": msg})
}

func (h *ChatHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	communityID, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	messageID, ok := pathID(c, "messageId", "message")
	if !ok {
		return
	}
	if !h.messageInCommunity(c, communityID, messageID) {
		return
	}
	if err := h.chat.Delete(c.Request.Context(), messageID, userID); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "message deleted"})
}

// Activity 最近 minutes 分钟内的消息数和发言人数
func (h *ChatHandler) Activity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	communityID, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	minutes := service.DefaultActivityWindow
	if raw := c.Query("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid minutes")
			return
		}
		minutes = n
	}
	if !h.requireMember(c, communityID, userID) {
		return
	}
	a, err := h.activity.RecentActivity(c.Request.Context(), communityID, minutes)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": a})
}
