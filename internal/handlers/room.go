package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatroom-service/internal/repositories"
)

// RoomHandler manages chat room endpoints.
type RoomHandler struct {
	roomRepo repositories.RoomRepository
	userRepo repositories.UserRepository
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(roomRepo repositories.RoomRepository, userRepo repositories.UserRepository) *RoomHandler {
	return &RoomHandler{roomRepo: roomRepo, userRepo: userRepo}
}

// CreateRoom creates a room from a name and at least two member usernames.
// Creation is atomic: if any username is unresolved, nothing is persisted.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ต้องระบุชื่อห้องและสมาชิกอย่างน้อย 2 คน"})
		return
	}

	if req.Name == "" || len(req.Members) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ต้องระบุชื่อห้องและสมาชิกอย่างน้อย 2 คน"})
		return
	}

	users, err := h.userRepo.FindUsersByUsernames(c.Request.Context(), req.Members)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "เกิดข้อผิดพลาดในการสร้างห้องแชท"})
		return
	}
	if len(users) != len(req.Members) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบ username บางรายการ"})
		return
	}

	memberIDs := make([]primitive.ObjectID, 0, len(users))
	for _, user := range users {
		memberIDs = append(memberIDs, user.ID)
	}

	room, err := h.roomRepo.CreateRoom(c.Request.Context(), req.Name, memberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "เกิดข้อผิดพลาดในการสร้างห้องแชท"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

// CheckUser reports whether a username exists.
func (h *RoomHandler) CheckUser(c *gin.Context) {
	user, err := h.userRepo.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบผู้ใช้"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "เกิดข้อผิดพลาด"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "พบผู้ใช้", "userId": user.ID.Hex()})
}

// ListRoomsForUser returns every room the user is a member of.
func (h *RoomHandler) ListRoomsForUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	rooms, err := h.roomRepo.ListRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// ListMembers returns the username and email of every room member.
func (h *RoomHandler) ListMembers(c *gin.Context) {
	roomID, err := primitive.ObjectIDFromHex(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบห้องแชท"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "เกิดข้อผิดพลาดในการดึงข้อมูลสมาชิก"})
		return
	}

	members, err := h.userRepo.FindMembersByIDs(c.Request.Context(), room.Members)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "เกิดข้อผิดพลาดในการดึงข้อมูลสมาชิก"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember adds a user to the room by username.
func (h *RoomHandler) AddMember(c *gin.Context) {
	roomID, err := primitive.ObjectIDFromHex(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบผู้ใช้"})
		return
	}

	user, err := h.userRepo.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบผู้ใช้"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ไม่สามารถเพิ่มสมาชิกได้"})
		return
	}

	room, err := h.roomRepo.AddMember(c.Request.Context(), roomID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบห้องแชท"})
		case errors.Is(err, repositories.ErrAlreadyMember):
			c.JSON(http.StatusBadRequest, gin.H{"error": "ผู้ใช้นี้อยู่ในห้องแล้ว"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ไม่สามารถเพิ่มสมาชิกได้"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "เพิ่มสมาชิกเรียบร้อยแล้ว", "room": room})
}

// RemoveMember removes a user from the room by username.
func (h *RoomHandler) RemoveMember(c *gin.Context) {
	roomID, err := primitive.ObjectIDFromHex(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบผู้ใช้"})
		return
	}

	user, err := h.userRepo.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบผู้ใช้"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ไม่สามารถลบสมาชิกได้"})
		return
	}

	room, err := h.roomRepo.RemoveMember(c.Request.Context(), roomID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ไม่พบห้องแชท"})
		case errors.Is(err, repositories.ErrNotMember):
			c.JSON(http.StatusBadRequest, gin.H{"error": "ผู้ใช้นี้ไม่ได้อยู่ในห้อง"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ไม่สามารถลบสมาชิกได้"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ลบสมาชิกเรียบร้อยแล้ว", "room": room})
}
