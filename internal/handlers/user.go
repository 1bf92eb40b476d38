package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/telemetry"
)

// UserHandler manages registration and login.
type UserHandler struct {
	userRepo repositories.UserRepository
	audit    *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{userRepo: userRepo, audit: audit}
}

// Register creates a new user with a bcrypt-hashed password.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		Username  string `json:"username"`
		Phone     string `json:"phone"`
		Birthdate string `json:"birthdate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "กรอกข้อมูลไม่ครบ"})
		return
	}

	// Birthdate is required by the contract but not persisted.
	if req.Email == "" || req.Password == "" || req.Username == "" || req.Phone == "" || req.Birthdate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "กรอกข้อมูลไม่ครบ"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "เกิดข้อผิดพลาด", "detail": err.Error()})
		return
	}

	user, err := h.userRepo.CreateUser(c.Request.Context(), models.User{
		Email:    req.Email,
		Username: req.Username,
		Phone:    req.Phone,
		Password: string(hash),
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, gin.H{"error": "ชื่อผู้ใช้หรืออีเมลนี้ถูกใช้งานแล้ว"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "เกิดข้อผิดพลาด", "detail": err.Error()})
		return
	}

	userID := user.ID.Hex()
	h.audit.Emit(c.Request.Context(), "INFO", "user registered", requestIDFromContext(c), &userID)

	c.JSON(http.StatusCreated, gin.H{"message": "สมัครสมาชิกสำเร็จ"})
}

// Login checks an email-or-username identifier against the stored bcrypt
// hash. Unknown identity and wrong password are indistinguishable in the
// response.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "กรอกข้อมูลไม่ครบ"})
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "กรอกข้อมูลไม่ครบ"})
		return
	}

	user, err := h.userRepo.GetUserByIdentifier(c.Request.Context(), identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			h.audit.Emit(c.Request.Context(), "WARN", "login failed", requestIDFromContext(c), nil)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "อีเมลหรือรหัสผ่านไม่ถูกต้อง"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "เกิดข้อผิดพลาด", "detail": err.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		h.audit.Emit(c.Request.Context(), "WARN", "login failed", requestIDFromContext(c), nil)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "อีเมลหรือรหัสผ่านไม่ถูกต้อง"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "เข้าสู่ระบบสำเร็จ", "userId": user.ID.Hex()})
}
