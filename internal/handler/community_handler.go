package handler

import (
	"net/http"

	"community_chat/internal/pkg"
	"community_chat/internal/service"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	communities *service.CommunityService
	members     *service.MemberService
	log         *pkg.Logger
}

type CommunityReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func NewCommunityHandler(communities *service.CommunityService, members *service.MemberService, log *pkg.Logger) *CommunityHandler {
	return &CommunityHandler{
		communities: communities,
		members:     members,
		log:         log.With("handler", "CommunityHandler"),
	}
}

// Create 创建社区，创建者成为管理员
func (h *CommunityHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CommunityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	ctx := c.Request.Context()
	id, err := h.communities.Create(ctx, req.Name, req.Description, userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	community, err := h.communities.Get(ctx, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "community created", "community": community})
}

func (h *CommunityHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	list, err := h.communities.List(c.Request.Context(), c.Query("search"), limit, offset)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": list})
}

// Mine 当前用户加入的社区
func (h *CommunityHandler) Mine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.communities.ListForUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": list})
}

func (h *CommunityHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	community, err := h.communities.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"community": community})
}

func (h *CommunityHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	var req CommunityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	community, err := h.communities.Update(c.Request.Context(), id, userID, req.Name, req.Description)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "community updated", "community": community})
}

func (h *CommunityHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	if err := h.communities.Delete(c.Request.Context(), id, userID); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "community deleted"})
}

func (h *CommunityHandler) Join(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	if err := h.members.Join(c.Request.Context(), id, userID); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "joined community"})
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	if err := h.members.Leave(c.Request.Context(), id, userID); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "left community"})
}

func (h *CommunityHandler) Members(c *gin.Context) {
	id, ok := pathID(c, "id", "community")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	list, err := h.members.ListMembers(c.Request.Context(), id, limit, offset)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": list})
}
